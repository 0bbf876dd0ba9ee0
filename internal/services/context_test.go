package services_test

import (
	"context"
	"testing"

	"batchenc/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithJobIndex(ctx, 2)
	ctx = services.WithInput(ctx, "/videos/clip.mp4")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if idx, ok := services.JobIndexFromContext(ctx); !ok || idx != 2 {
		t.Fatalf("unexpected job index: %v %v", idx, ok)
	}
	if input, ok := services.InputFromContext(ctx); !ok || input != "/videos/clip.mp4" {
		t.Fatalf("unexpected input: %v %v", input, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "")
	ctx = services.WithJobIndex(ctx, 0)
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
	if _, ok := services.JobIndexFromContext(ctx); ok {
		t.Fatal("expected no job index value")
	}
}
