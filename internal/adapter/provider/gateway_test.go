package provider_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mvelabs/boardroom/internal/adapter/provider"
	"github.com/mvelabs/boardroom/internal/domain"
)

func TestGateway_Process(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/charges" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "ch_123", "status": "succeeded"})
	}))
	defer srv.Close()

	g := provider.New([]provider.Config{{ID: "stripe", BaseURL: srv.URL, APIKey: "sk_test"}})

	result, err := g.Process(context.Background(), "stripe", 1500, "cus_42")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.ExternalID != "ch_123" {
		t.Errorf("external id = %q, want ch_123", result.ExternalID)
	}
	if result.Status != domain.PaymentCompleted {
		t.Errorf("status = %q, want completed", result.Status)
	}
	if gotAuth != "Bearer sk_test" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody["amount"] != 1500.0 || gotBody["payer_ref"] != "cus_42" {
		t.Errorf("request body = %v", gotBody)
	}
}

func TestGateway_UnknownProvider(t *testing.T) {
	g := provider.New(nil)

	_, err := g.Process(context.Background(), "nope", 100, "cus_1")
	var provErr *domain.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if provErr.Provider != "nope" {
		t.Errorf("provider = %q", provErr.Provider)
	}
}

func TestGateway_ProviderHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	g := provider.New([]provider.Config{{ID: "stripe", BaseURL: srv.URL, APIKey: "k"}})

	_, err := g.Process(context.Background(), "stripe", 100, "cus_1")
	var provErr *domain.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
}

func TestGateway_UnknownStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "ch_1", "status": "weird"})
	}))
	defer srv.Close()

	g := provider.New([]provider.Config{{ID: "stripe", BaseURL: srv.URL, APIKey: "k"}})

	_, err := g.Process(context.Background(), "stripe", 100, "cus_1")
	var provErr *domain.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
}

func TestMapStatus(t *testing.T) {
	cases := []struct {
		in   string
		want domain.PaymentStatus
	}{
		{"pending", domain.PaymentPending},
		{"created", domain.PaymentPending},
		{"authorized", domain.PaymentProcessing},
		{"succeeded", domain.PaymentCompleted},
		{"settled", domain.PaymentCompleted},
		{"declined", domain.PaymentFailed},
		{"canceled", domain.PaymentCancelled},
	}
	for _, c := range cases {
		got, err := provider.MapStatus(c.in)
		if err != nil {
			t.Errorf("MapStatus(%q) error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("MapStatus(%q) = %q, want %q", c.in, got, c.want)
		}
	}

	if _, err := provider.MapStatus("bogus"); err == nil {
		t.Error("expected error for unknown status")
	}
}
