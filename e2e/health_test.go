package e2e

import (
	"net/http"
	"testing"
	"time"

	"github.com/wildmind/studio-api/internal/auth"
)

func TestBaseURL(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	if _, ok := body["timestamp"]; !ok {
		t.Error("expected 'timestamp' field in response")
	}
}

func TestHealth(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/health", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", body["status"])
	}
	services, ok := body["services"].(map[string]interface{})
	if !ok {
		t.Fatal("expected 'services' field in response")
	}
	for _, name := range []string{"redis", "flux", "minimax", "backend", "storage", "auth"} {
		if _, ok := services[name]; !ok {
			t.Errorf("expected service %q in health response", name)
		}
	}
	if services["redis"] != true {
		t.Errorf("expected redis to be reachable, got %v", services["redis"])
	}
	// no Flux key in tests, so shots come from the placeholder generator
	if services["flux"] != false {
		t.Errorf("expected flux unconfigured, got %v", services["flux"])
	}
	if body["placeholderShots"] != true {
		t.Errorf("expected placeholderShots true, got %v", body["placeholderShots"])
	}
}

func TestAuthVerify_NoToken(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/auth/verify", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestAuthVerify_ValidToken(t *testing.T) {
	ta := setupApp(t)

	token := generateToken(t)
	resp, err := doRequest(ta.app, http.MethodGet, "/auth/verify", "", map[string]string{
		"Authorization": "Bearer " + token,
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	if resp.Header.Get("X-User-Id") == "" {
		t.Error("expected X-User-Id header to be set")
	}
	if resp.Header.Get("X-User-Email") == "" {
		t.Error("expected X-User-Email header to be set")
	}
}

func TestAuthVerify_ForeignSecret(t *testing.T) {
	ta := setupApp(t)

	token, err := auth.IssueSessionToken("some-other-secret", auth.Identity{UserID: "intruder"}, time.Hour)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	resp, err := doRequest(ta.app, http.MethodGet, "/auth/verify", "", map[string]string{
		"Authorization": "Bearer " + token,
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusUnauthorized)
	if resp.Header.Get("X-User-Id") != "" {
		t.Error("expected no identity headers on rejection")
	}
}

func TestErrorEnvelope_CarriesRequestID(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/api/projects/status/abc", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusUnauthorized)

	headerID := resp.Header.Get("X-Request-Id")
	if headerID == "" {
		t.Fatal("expected X-Request-Id header")
	}
	body := parseJSON(t, resp)
	if body["requestId"] != headerID {
		t.Errorf("expected requestId %q in body, got %v", headerID, body["requestId"])
	}
	if e, _ := body["error"].(map[string]interface{}); e["code"] != "UNAUTHORIZED" {
		t.Errorf("expected UNAUTHORIZED, got %v", body["error"])
	}
}
