package driver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lynkd/connection"
)

func TestProbeClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantOK    bool
		wantInMsg string
	}{
		{
			name:      "unauthorized means invalid credential",
			status:    http.StatusUnauthorized,
			wantOK:    false,
			wantInMsg: "invalid credential",
		},
		{
			name:   "forbidden with challenge body is reachable",
			status: http.StatusForbidden,
			body:   `<html><title>Just a moment...</title> cf-ray: abc</html>`,
			wantOK: true,
		},
		{
			name:      "forbidden without challenge is invalid credential",
			status:    http.StatusForbidden,
			body:      `{"error":"forbidden"}`,
			wantOK:    false,
			wantInMsg: "invalid credential",
		},
		{
			name:   "ok is reachable",
			status: http.StatusOK,
			body:   `{"id":"msg_1"}`,
			wantOK: true,
		},
		{
			name:   "bad request still proves routing",
			status: http.StatusBadRequest,
			body:   `{"error":"unknown model"}`,
			wantOK: true,
		},
		{
			name:   "server error still proves routing",
			status: http.StatusInternalServerError,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			req := TestRequest{Credential: "sk-test", Endpoint: srv.URL, SubProvider: "openai"}
			result := Probe(context.Background(), req, DefaultProbeBudget)

			if result.OK != tt.wantOK {
				t.Fatalf("OK = %v, want %v (message %q)", result.OK, tt.wantOK, result.Message)
			}
			if tt.wantInMsg != "" && !strings.Contains(result.Message, tt.wantInMsg) {
				t.Errorf("message = %q, want substring %q", result.Message, tt.wantInMsg)
			}
		})
	}
}

func TestProbeSendsCredentialPerProfile(t *testing.T) {
	var gotAuth, gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req := TestRequest{Credential: "sk-ant-test", Endpoint: srv.URL, SubProvider: "anthropic"}
	result := Probe(context.Background(), req, DefaultProbeBudget)
	if !result.OK {
		t.Fatalf("probe failed: %s", result.Message)
	}
	if gotAuth != "sk-ant-test" {
		t.Errorf("x-api-key = %q", gotAuth)
	}
	if gotVersion == "" {
		t.Error("anthropic-version header not sent")
	}
}

func TestProbeBearerScheme(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req := TestRequest{Credential: "sk-test", Endpoint: srv.URL, SubProvider: "openai"}
	Probe(context.Background(), req, DefaultProbeBudget)
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want Bearer prefix", gotAuth)
	}
}

func TestProbeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req := TestRequest{Credential: "sk-test", Endpoint: srv.URL, SubProvider: "openai"}
	result := Probe(context.Background(), req, 50*time.Millisecond)
	if result.OK {
		t.Fatal("expected timeout failure")
	}
	if result.Message != connection.ErrConnectionTimeout.Error() {
		t.Errorf("message = %q", result.Message)
	}
}

func TestProbeTransportErrorIncludesEndpoint(t *testing.T) {
	// Port 1 refuses connections immediately.
	req := TestRequest{Credential: "sk-test", Endpoint: "http://127.0.0.1:1", SubProvider: "openai"}
	result := Probe(context.Background(), req, DefaultProbeBudget)
	if result.OK {
		t.Fatal("expected transport failure")
	}
	if !strings.Contains(result.Message, "127.0.0.1:1") {
		t.Errorf("message should name the endpoint: %q", result.Message)
	}
}

func TestProbeIdempotent(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req := TestRequest{Credential: "sk-test", Endpoint: srv.URL, SubProvider: "openai"}
	first := Probe(context.Background(), req, DefaultProbeBudget)
	second := Probe(context.Background(), req, DefaultProbeBudget)
	if first != second {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
	if calls != 2 {
		t.Errorf("expected exactly one call per probe, got %d", calls)
	}
}
