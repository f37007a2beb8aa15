package context_test

import (
	"context"
	"strings"
	"testing"
	"time"

	pcontext "github.com/cherry/cherry/pkg/context"
)

func TestBuildID(t *testing.T) {
	ctx := context.Background()
	if pcontext.HasBuildID(ctx) {
		t.Fatal("empty context must not carry a build id")
	}

	ctx = pcontext.WithBuildID(ctx, "")
	if !strings.HasPrefix(pcontext.GetBuildID(ctx), "build_") {
		t.Errorf("expected generated build id, got %q", pcontext.GetBuildID(ctx))
	}

	ctx = pcontext.WithBuildID(ctx, "fixed")
	if got := pcontext.GetBuildID(ctx); got != "fixed" {
		t.Errorf("GetBuildID() = %q, want fixed", got)
	}
}

func TestEnrichContext_KeepsExistingBuildID(t *testing.T) {
	ctx := pcontext.WithBuildID(context.Background(), "outer")
	ctx = pcontext.EnrichContext(ctx)

	if got := pcontext.GetBuildID(ctx); got != "outer" {
		t.Errorf("GetBuildID() = %q, want outer", got)
	}
	if _, ok := pcontext.GetStartTime(ctx); !ok {
		t.Error("expected start time to be set")
	}
}

func TestGetDuration(t *testing.T) {
	if d := pcontext.GetDuration(context.Background()); d != 0 {
		t.Errorf("GetDuration() without start = %v, want 0", d)
	}

	ctx := pcontext.WithStartTime(context.Background(), time.Now().Add(-time.Second))
	if d := pcontext.GetDuration(ctx); d < time.Second {
		t.Errorf("GetDuration() = %v, want >= 1s", d)
	}
}

func TestOperationAndManifest(t *testing.T) {
	ctx := pcontext.WithOperation(context.Background(), "handle")
	ctx = pcontext.WithManifest(ctx, "app.cherry")

	if got := pcontext.GetOperation(ctx); got != "handle" {
		t.Errorf("GetOperation() = %q", got)
	}
	if got := pcontext.GetManifest(ctx); got != "app.cherry" {
		t.Errorf("GetManifest() = %q", got)
	}
	if pcontext.HasOperation(context.Background()) {
		t.Error("empty context must not carry an operation")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	ctx := pcontext.WithBuildID(context.Background(), "build_1")
	ctx = pcontext.WithManifest(ctx, "/web/app.cherry")
	ctx = pcontext.WithOperation(ctx, "clean")
	ctx = pcontext.WithStartTime(ctx, time.Now())

	if got := pcontext.GetBuildID(ctx); got != "build_1" {
		t.Errorf("GetBuildID() = %q, want build_1", got)
	}
	if got := pcontext.GetManifest(ctx); got != "/web/app.cherry" {
		t.Errorf("GetManifest() = %q, want /web/app.cherry", got)
	}
	if got := pcontext.GetOperation(ctx); got != "clean" {
		t.Errorf("GetOperation() = %q, want clean", got)
	}
	if _, ok := pcontext.GetStartTime(ctx); !ok {
		t.Error("start time lost")
	}
}
