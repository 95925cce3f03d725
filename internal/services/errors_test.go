package services_test

import (
	"errors"
	"strings"
	"testing"

	"osmautolink/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransport, "discovery", "overpass", "query failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"discovery", "overpass", "query failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestExitSummary(t *testing.T) {
	rejected := services.Wrap(services.ErrRejected, "upload", "changeset 1", "", errors.New("409"))
	if got := services.ExitSummary(rejected); !strings.Contains(got, "rejected") {
		t.Fatalf("unexpected summary for rejection: %q", got)
	}
	transport := services.Wrap(services.ErrTransport, "discovery", "", "", nil)
	if got := services.ExitSummary(transport); got != "remote service unavailable" {
		t.Fatalf("unexpected summary for transport failure: %q", got)
	}
	if got := services.ExitSummary(nil); got != "ok" {
		t.Fatalf("unexpected summary for nil: %q", got)
	}
}
