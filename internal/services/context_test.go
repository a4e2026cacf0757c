package services_test

import (
	"context"
	"testing"

	"silkstaff/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStepIndex(ctx, 4)
	ctx = services.WithJob(ctx, "upload")
	ctx = services.WithRunID(ctx, "run-123")

	if idx, ok := services.StepIndexFromContext(ctx); !ok || idx != 4 {
		t.Fatalf("unexpected step index: %v %v", idx, ok)
	}
	if job, ok := services.JobFromContext(ctx); !ok || job != "upload" {
		t.Fatalf("unexpected job: %v %v", job, ok)
	}
	if rid, ok := services.RunIDFromContext(ctx); !ok || rid != "run-123" {
		t.Fatalf("unexpected run id: %v %v", rid, ok)
	}
}

func TestJobBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJob(ctx, "")
	if _, ok := services.JobFromContext(ctx); ok {
		t.Fatal("expected no job value")
	}
}

func TestStepIndexZeroIsPresent(t *testing.T) {
	ctx := services.WithStepIndex(context.Background(), 0)
	if idx, ok := services.StepIndexFromContext(ctx); !ok || idx != 0 {
		t.Fatalf("expected index 0 to be present, got %v %v", idx, ok)
	}
}
