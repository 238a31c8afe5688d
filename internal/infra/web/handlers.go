package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"elearn-entitlements/internal/domain"
	"elearn-entitlements/internal/domain/model"
	"elearn-entitlements/internal/domain/ports/repository"
	"elearn-entitlements/internal/usecase"

	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// rejectionBody is the stable error shape for code rejections: a
// machine-readable reason plus its catalog message. Every reason keeps its
// own message, never a collapsed "invalid code".
type rejectionBody struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (s *Server) writeRejection(w http.ResponseWriter, status int, err error) {
	name := domain.RejectionName(err)
	writeJSON(w, status, rejectionBody{Reason: name, Message: s.tr.T(name)})
}

// ===== Sessions =====

type sessionCreateRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// handleSessionCreate registers-or-fetches the account for an identity the
// provider already verified and mints the session JWT. There is no password
// handling here.
func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req sessionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	acct, err := s.accountUC.RegisterOrFetch(r.Context(), req.Email, req.DisplayName)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	token, err := s.auth.Mint(w, acct)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Token     string `json:"token"`
		AccountID string `json:"account_id"`
	}{Token: token, AccountID: acct.ID})
}

// ===== Holder API =====

type codeRequest struct {
	Code    string `json:"code"`
	Context string `json:"context"`
}

func (req *codeRequest) redemptionContext() (model.RedemptionContext, bool) {
	rctx := model.RedemptionContext(req.Context)
	return rctx, rctx.Valid()
}

// handleValidate answers a live validity check. Rejections are the payload
// here, not errors: the endpoint exists to be called on every keystroke.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	claims := SessionFrom(r.Context())

	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	rctx, ok := req.redemptionContext()
	if !ok {
		http.Error(w, "Unknown redemption context", http.StatusBadRequest)
		return
	}

	_, err := s.validator.Validate(r.Context(), repository.NoTX, req.Code, claims.AccountID, rctx, time.Now())
	if err != nil {
		if !domain.IsRejection(err) {
			http.Error(w, "Validation failed", http.StatusInternalServerError)
			return
		}
		name := domain.RejectionName(err)
		writeJSON(w, http.StatusOK, struct {
			Valid   bool   `json:"valid"`
			Reason  string `json:"reason"`
			Message string `json:"message"`
		}{Valid: false, Reason: name, Message: s.tr.T(name)})
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Valid bool `json:"valid"`
	}{Valid: true})
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	claims := SessionFrom(r.Context())

	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	rctx, ok := req.redemptionContext()
	if !ok {
		http.Error(w, "Unknown redemption context", http.StatusBadRequest)
		return
	}

	ent, err := s.redeemUC.Redeem(r.Context(), req.Code, claims.AccountID, rctx)
	if err != nil {
		if domain.IsRejection(err) {
			s.writeRejection(w, http.StatusUnprocessableEntity, err)
			return
		}
		http.Error(w, "Redemption failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Message     string             `json:"message"`
		Entitlement *model.Entitlement `json:"entitlement"`
	}{Message: s.tr.T("redeem_success"), Entitlement: ent})
}

func (s *Server) handleEntitlementGet(w http.ResponseWriter, r *http.Request) {
	claims := SessionFrom(r.Context())
	s.serveEntitlement(w, r, claims.AccountID)
}

func (s *Server) serveEntitlement(w http.ResponseWriter, r *http.Request, accountID string) {
	ent, err := s.entUC.Get(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "Failed to get entitlement", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ent)
}

// ===== Billing webhook =====

type billingWebhookRequest struct {
	AccountID string     `json:"account_id"`
	PlanID    string     `json:"plan_id"`
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// handleBillingWebhook takes the payment provider's word on a subscription.
// Checkout itself never touches this service.
func (s *Server) handleBillingWebhook(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("X-Webhook-Secret")
	if s.webhookSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(s.webhookSecret)) != 1 {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var req billingWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	_, err := s.entUC.ApplyPurchase(r.Context(), req.AccountID, req.PlanID, model.PurchaseStatus(req.Status), req.ExpiresAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to apply purchase", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== Admin API =====

type codeIssueRequest struct {
	Kind       string  `json:"kind"`
	Value      string  `json:"value"`
	PlanID     *string `json:"plan_id"`
	AssignedTo *string `json:"assigned_to"`
	IssuedBy   *string `json:"issued_by"`
	ValidHours int     `json:"valid_hours"`
}

func (s *Server) handleCodeIssue(w http.ResponseWriter, r *http.Request) {
	var req codeIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	code, err := s.adminUC.Issue(r.Context(), usecase.IssueParams{
		Kind:       model.CodeKind(req.Kind),
		Value:      req.Value,
		PlanID:     req.PlanID,
		AssignedTo: req.AssignedTo,
		IssuedBy:   req.IssuedBy,
		ValidFor:   time.Duration(req.ValidHours) * time.Hour,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, domain.ErrAlreadyExists):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, "Failed to issue code", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, code)
}

func (s *Server) handleCodeList(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	codes, err := s.adminUC.List(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, "Failed to list codes", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Data   []*model.Code `json:"data"`
		Limit  int           `json:"limit"`
		Offset int           `json:"offset"`
	}{Data: codes, Limit: limit, Offset: offset})
}

func (s *Server) handleCodeGet(w http.ResponseWriter, r *http.Request) {
	code, err := s.adminUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "Failed to get code", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, code)
}

func (s *Server) handleCodeDeactivate(w http.ResponseWriter, r *http.Request) {
	s.setCodeActive(w, r, false)
}

func (s *Server) handleCodeReactivate(w http.ResponseWriter, r *http.Request) {
	s.setCodeActive(w, r, true)
}

func (s *Server) setCodeActive(w http.ResponseWriter, r *http.Request, active bool) {
	id := chi.URLParam(r, "id")
	var (
		code *model.Code
		err  error
	)
	if active {
		code, err = s.adminUC.Reactivate(r.Context(), id)
	} else {
		code, err = s.adminUC.Deactivate(r.Context(), id)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "Failed to update code", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, code)
}

func (s *Server) handleCodeDelete(w http.ResponseWriter, r *http.Request) {
	purged, err := s.adminUC.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "Failed to delete code", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Purged  bool `json:"purged"`
		Retired bool `json:"retired"`
	}{Purged: purged, Retired: !purged})
}

type planCreateRequest struct {
	Name         string `json:"name"`
	DurationDays int    `json:"duration_days"`
}

func (s *Server) handlePlanCreate(w http.ResponseWriter, r *http.Request) {
	var req planCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	plan, err := s.planUC.Create(r.Context(), req.Name, req.DurationDays)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to create plan", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) handlePlanList(w http.ResponseWriter, r *http.Request) {
	plans, err := s.planUC.List(r.Context())
	if err != nil {
		http.Error(w, "Failed to list plans", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Data []*model.SubscriptionPlan `json:"data"`
	}{Data: plans})
}

func (s *Server) handleAdminEntitlementGet(w http.ResponseWriter, r *http.Request) {
	s.serveEntitlement(w, r, chi.URLParam(r, "id"))
}

func (s *Server) handleAccountSuspend(w http.ResponseWriter, r *http.Request) {
	s.setAccountSuspended(w, r, true)
}

func (s *Server) handleAccountReinstate(w http.ResponseWriter, r *http.Request) {
	s.setAccountSuspended(w, r, false)
}

func (s *Server) setAccountSuspended(w http.ResponseWriter, r *http.Request, suspended bool) {
	id := chi.URLParam(r, "id")
	var (
		ent *model.Entitlement
		err error
	)
	if suspended {
		ent, err = s.entUC.SuspendAccount(r.Context(), id)
	} else {
		ent, err = s.entUC.ReinstateAccount(r.Context(), id)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "Failed to update account", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ent)
}

func (s *Server) handleAccountDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.entUC.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "Failed to delete account", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
