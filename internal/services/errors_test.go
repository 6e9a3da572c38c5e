package services_test

import (
	"errors"
	"strings"
	"testing"

	"scout/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("exit status 2")
	err := services.Wrap(services.ErrWorkerExit, "profiles", "wait", "worker failed", base)
	if !errors.Is(err, services.ErrWorkerExit) {
		t.Fatalf("expected ErrWorkerExit classification, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped base error to survive")
	}
	for _, fragment := range []string{"profiles", "wait", "worker failed"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in message %q", fragment, err.Error())
		}
	}
}

func TestWrapNilMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if err == nil {
		t.Fatal("expected non-nil error")
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
