package services_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"silkstaff/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternal, "tableapi", "upsert", "releases", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"tableapi", "upsert", "releases"} {
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
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestMarkerForStatus(t *testing.T) {
	cases := map[int]error{
		http.StatusUnauthorized:          services.ErrConfiguration,
		http.StatusForbidden:             services.ErrConfiguration,
		http.StatusNotFound:              services.ErrNotFound,
		http.StatusRequestEntityTooLarge: services.ErrValidation,
		http.StatusUnprocessableEntity:   services.ErrValidation,
		http.StatusGatewayTimeout:        services.ErrTimeout,
		http.StatusTooManyRequests:       services.ErrTransient,
		http.StatusBadGateway:            services.ErrTransient,
		http.StatusConflict:              services.ErrExternal,
	}
	for code, want := range cases {
		if got := services.MarkerForStatus(code); got != want {
			t.Errorf("status %d: got %v want %v", code, got, want)
		}
	}
}

func TestHintFollowsMarker(t *testing.T) {
	err := services.Wrap(services.ErrConfiguration, "tableapi", "rows", "", nil)
	if hint := services.Hint(err); !strings.Contains(hint, "credentials") {
		t.Fatalf("unexpected hint %q", hint)
	}
	if hint := services.Hint(nil); hint != "" {
		t.Fatalf("expected empty hint for nil error, got %q", hint)
	}
}
