package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestValidateWithoutStoredCredentialSkipsNetwork(t *testing.T) {
	calls := atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	gateway := NewGateway(WithHTTPClient(server.Client()))

	for _, stored := range []*Credential{nil, {Server: "  ", Token: "abc"}} {
		_, err := gateway.Validate(context.Background(), stored)
		if got := KindOf(err); got != FailureNoServerConfigured {
			t.Fatalf("expected %q, got %q (%v)", FailureNoServerConfigured, got, err)
		}
	}

	if got := calls.Load(); got != 0 {
		t.Fatalf("expected no requests, got %d", got)
	}
}

func TestValidateMapsStatuses(t *testing.T) {
	testCases := []struct {
		name           string
		status         int
		body           string
		expectedKind   FailureKind
		expectedReason string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"message":"token expired"}`, expectedKind: FailureUnauthorized, expectedReason: "token expired"},
		{name: "forbidden", status: http.StatusForbidden, body: ``, expectedKind: FailureUnauthorized, expectedReason: "Forbidden"},
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"db down"}`, expectedKind: FailureTransient, expectedReason: "db down"},
		{name: "not found", status: http.StatusNotFound, body: `not json`, expectedKind: FailureTransient, expectedReason: "Not Found"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(testCase.status)
				_, _ = w.Write([]byte(testCase.body))
			}))
			defer server.Close()

			gateway := NewGateway(WithHTTPClient(server.Client()))
			_, err := gateway.Validate(context.Background(), &Credential{Server: server.URL, Token: "abc"})

			var failure *Failure
			if !errors.As(err, &failure) {
				t.Fatalf("expected auth failure, got %v", err)
			}
			if failure.Kind != testCase.expectedKind {
				t.Fatalf("expected kind %q, got %q", testCase.expectedKind, failure.Kind)
			}
			if failure.Reason != testCase.expectedReason {
				t.Fatalf("expected reason %q, got %q", testCase.expectedReason, failure.Reason)
			}
			if failure.Status != testCase.status {
				t.Fatalf("expected status %d, got %d", testCase.status, failure.Status)
			}
		})
	}
}

func TestValidateSendsTokenAndKeepsItWhenResponseOmitsOne(t *testing.T) {
	var received tokenRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != validatePath {
			t.Errorf("expected path %q, got %q", validatePath, r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	gateway := NewGateway(WithHTTPClient(server.Client()))
	credential, err := gateway.Validate(context.Background(), &Credential{Server: server.URL, Token: "abc"})
	if err != nil {
		t.Fatalf("expected validation to succeed, got %v", err)
	}

	if received.Token != "abc" {
		t.Fatalf("expected token to be sent, got %q", received.Token)
	}
	if credential.Token != "abc" || credential.Server != server.URL {
		t.Fatalf("expected stored credential back, got %+v", credential)
	}
}

func TestValidateReturnsRefreshedToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(tokenResponse{Token: "fresh"})
	}))
	defer server.Close()

	gateway := NewGateway(WithHTTPClient(server.Client()))
	credential, err := gateway.Validate(context.Background(), &Credential{Server: server.URL, Token: "stale"})
	if err != nil {
		t.Fatalf("expected validation to succeed, got %v", err)
	}
	if credential.Token != "fresh" {
		t.Fatalf("expected refreshed token, got %q", credential.Token)
	}
}

func TestValidateUnreachableServerIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	address := server.URL
	server.Close()

	gateway := NewGateway()
	_, err := gateway.Validate(context.Background(), &Credential{Server: address, Token: "abc"})
	if got := KindOf(err); got != FailureTransient {
		t.Fatalf("expected transient failure, got %q (%v)", got, err)
	}
}

func TestLoginExchangesCredentials(t *testing.T) {
	var received loginRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != loginPath {
			t.Errorf("expected path %q, got %q", loginPath, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		if received.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"wrong password"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(tokenResponse{Token: "issued"})
	}))
	defer server.Close()

	gateway := NewGateway(WithHTTPClient(server.Client()))

	credential, err := gateway.Login(context.Background(), server.URL, LoginCredentials{Username: "dave", Password: "secret"})
	if err != nil {
		t.Fatalf("expected login to succeed, got %v", err)
	}
	if credential.Token != "issued" || credential.Server != server.URL {
		t.Fatalf("unexpected credential %+v", credential)
	}
	if received.Username != "dave" {
		t.Fatalf("expected username to be sent, got %q", received.Username)
	}

	_, err = gateway.Login(context.Background(), server.URL, LoginCredentials{Username: "dave", Password: "nope"})
	if got := KindOf(err); got != FailureUnauthorized {
		t.Fatalf("expected unauthorized, got %q", got)
	}
	if got := ReasonOf(err); got != "wrong password" {
		t.Fatalf("expected reason from body, got %q", got)
	}
}

func TestLoginWithoutTokenIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	gateway := NewGateway(WithHTTPClient(server.Client()))
	_, err := gateway.Login(context.Background(), server.URL, LoginCredentials{Username: "dave", Password: "secret"})
	if got := KindOf(err); got != FailureTransient {
		t.Fatalf("expected transient failure, got %q", got)
	}
}

func TestEndpointURLMapsWebsocketSchemes(t *testing.T) {
	got, err := endpointURL("wss://brain.example.com/base", validatePath)
	if err != nil {
		t.Fatalf("expected valid url, got %v", err)
	}
	if got != "https://brain.example.com/base/api/validate" {
		t.Fatalf("unexpected endpoint %q", got)
	}

	if _, err := endpointURL("brain.example.com", validatePath); err == nil {
		t.Fatalf("expected relative address to be rejected")
	}
}
