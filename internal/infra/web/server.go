package web

import (
	"net/http"

	"elearn-entitlements/internal/infra/i18n"
	"elearn-entitlements/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type Server struct {
	accountUC usecase.AccountUseCase
	validator usecase.ValidatorUseCase
	redeemUC  usecase.RedemptionUseCase
	entUC     usecase.EntitlementUseCase
	adminUC   usecase.CodeAdminUseCase
	planUC    usecase.PlanUseCase

	auth          *AuthManager
	apiKey        string
	webhookSecret string
	tr            *i18n.Translator
	log           *zerolog.Logger
}

func NewServer(
	accountUC usecase.AccountUseCase,
	validator usecase.ValidatorUseCase,
	redeemUC usecase.RedemptionUseCase,
	entUC usecase.EntitlementUseCase,
	adminUC usecase.CodeAdminUseCase,
	planUC usecase.PlanUseCase,
	auth *AuthManager,
	apiKey string,
	webhookSecret string,
	tr *i18n.Translator,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		accountUC:     accountUC,
		validator:     validator,
		redeemUC:      redeemUC,
		entUC:         entUC,
		adminUC:       adminUC,
		planUC:        planUC,
		auth:          auth,
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		tr:            tr,
		log:           logger,
	}
}

// Routes builds the full router: public endpoints, the holder API behind
// JWT sessions, the admin API behind the bearer key, and the billing
// webhook behind its shared secret.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(traceID)
	r.Use(recoverer(s.log))
	r.Use(requestLog(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/session", s.handleSessionCreate)

		// Holder API
		r.Group(func(r chi.Router) {
			r.Use(s.sessionAuth)
			r.Post("/codes/validate", s.handleValidate)
			r.Post("/codes/redeem", s.handleRedeem)
			r.Get("/entitlement", s.handleEntitlementGet)
		})

		// Billing webhook
		r.Post("/billing/webhook", s.handleBillingWebhook)

		// Admin API
		r.Route("/admin", func(r chi.Router) {
			r.Use(s.adminAuth)
			r.Post("/codes", s.handleCodeIssue)
			r.Get("/codes", s.handleCodeList)
			r.Get("/codes/{id}", s.handleCodeGet)
			r.Post("/codes/{id}/deactivate", s.handleCodeDeactivate)
			r.Post("/codes/{id}/reactivate", s.handleCodeReactivate)
			r.Delete("/codes/{id}", s.handleCodeDelete)
			r.Post("/plans", s.handlePlanCreate)
			r.Get("/plans", s.handlePlanList)
			r.Get("/accounts/{id}/entitlement", s.handleAdminEntitlementGet)
			r.Post("/accounts/{id}/suspend", s.handleAccountSuspend)
			r.Post("/accounts/{id}/reinstate", s.handleAccountReinstate)
			r.Delete("/accounts/{id}", s.handleAccountDelete)
		})
	})

	return r
}
