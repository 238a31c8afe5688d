//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"elearn-entitlements/internal/domain"
	"elearn-entitlements/internal/domain/model"
)

func TestCodeRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewCodeRepo(testPool)

	t.Run("should create, find, and update a code", func(t *testing.T) {
		cleanup(t)

		code, err := model.NewCode("", "quiz-482913", model.CodeKindOneTime)
		if err != nil {
			t.Fatalf("NewCode failed: %v", err)
		}
		if err := repo.Save(ctx, nil, code); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		found, err := repo.FindByValue(ctx, nil, "QUIZ-482913")
		if err != nil {
			t.Fatalf("FindByValue failed: %v", err)
		}
		if found.ID != code.ID || found.Kind != model.CodeKindOneTime {
			t.Errorf("found wrong code: %+v", found)
		}
		if !found.IsActive {
			t.Error("expected a fresh code to be active")
		}

		found.IsActive = false
		if err := repo.Save(ctx, nil, found); err != nil {
			t.Fatalf("update Save failed: %v", err)
		}
		again, err := repo.FindByID(ctx, nil, code.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if again.IsActive {
			t.Error("expected the deactivation persisted")
		}
	})

	t.Run("should reject a duplicate value", func(t *testing.T) {
		cleanup(t)

		first, _ := model.NewCode("", "55555", model.CodeKindMaster)
		if err := repo.Save(ctx, nil, first); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		dup, _ := model.NewCode("", "55555", model.CodeKindMaster)
		if err := repo.Save(ctx, nil, dup); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("should refuse to delete a redeemed code", func(t *testing.T) {
		cleanup(t)

		code, _ := model.NewCode("", "PRO-110011", model.CodeKindInstructorActivation)
		if err := repo.Save(ctx, nil, code); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		acct, _ := model.NewAccount("", "holder@example.com", "Holder")
		if err := NewAccountRepo(testPool).Save(ctx, nil, acct); err != nil {
			t.Fatalf("account Save failed: %v", err)
		}
		red, _ := model.NewRedemption(code, acct.ID, model.ContextInstructor, time.Now())
		if err := NewRedemptionRepo(testPool).Insert(ctx, nil, red); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		if err := repo.Delete(ctx, nil, code.ID); !errors.Is(err, domain.ErrIntegrityViolation) {
			t.Errorf("expected ErrIntegrityViolation, got %v", err)
		}
	})

	t.Run("should delete an unreferenced code", func(t *testing.T) {
		cleanup(t)

		code, _ := model.NewCode("", "QUIZ-910910", model.CodeKindOneTime)
		if err := repo.Save(ctx, nil, code); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if err := repo.Delete(ctx, nil, code.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := repo.FindByID(ctx, nil, code.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("should list newest first", func(t *testing.T) {
		cleanup(t)

		for _, v := range []string{"QUIZ-000001", "QUIZ-000002", "QUIZ-000003"} {
			c, _ := model.NewCode("", v, model.CodeKindOneTime)
			if err := repo.Save(ctx, nil, c); err != nil {
				t.Fatalf("Save %s failed: %v", v, err)
			}
			time.Sleep(5 * time.Millisecond)
		}
		out, err := repo.List(ctx, nil, 2, 0)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(out) != 2 {
			t.Fatalf("expected 2 codes, got %d", len(out))
		}
		if out[0].Value != "QUIZ-000003" {
			t.Errorf("expected newest first, got %s", out[0].Value)
		}
	})
}
