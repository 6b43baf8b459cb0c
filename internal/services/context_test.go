package services_test

import (
	"context"
	"testing"

	"shipit/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithWorkflow(ctx, "build")
	ctx = services.WithStage(ctx, "git_revert")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if wf, ok := services.WorkflowFromContext(ctx); !ok || wf != "build" {
		t.Fatalf("unexpected workflow: %v %v", wf, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "git_revert" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}
