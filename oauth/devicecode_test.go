package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"lynkd/connection"
)

func TestRequestCodeParsesPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		if r.PostForm.Get("client_id") == "" {
			t.Error("client_id not sent")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"device_code":      "dev-1",
			"user_code":        "ABCD-1234",
			"verification_uri": "https://github.com/login/device",
			"expires_in":       900,
			"interval":         5,
		})
	}))
	defer srv.Close()

	flow := NewDeviceFlow(WithDeviceCodeURL(srv.URL))
	auth, err := flow.RequestCode(context.Background())
	if err != nil {
		t.Fatalf("RequestCode: %v", err)
	}
	if auth.UserCode != "ABCD-1234" || auth.DeviceCode != "dev-1" {
		t.Errorf("auth = %+v", auth)
	}
}

func TestRequestCodeIncompleteResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"user_code": "ABCD-1234"})
	}))
	defer srv.Close()

	flow := NewDeviceFlow(WithDeviceCodeURL(srv.URL))
	if _, err := flow.RequestCode(context.Background()); err == nil {
		t.Error("expected error for incomplete response")
	}
}

func TestAwaitPendingThenSuccess(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if got := r.PostForm.Get("grant_type"); !strings.Contains(got, "device_code") {
			t.Errorf("grant_type = %q", got)
		}
		if polls.Add(1) == 1 {
			json.NewEncoder(w).Encode(map[string]string{"error": "authorization_pending"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "gho_ok", "token_type": "bearer"})
	}))
	defer srv.Close()

	flow := NewDeviceFlow(WithDeviceTokenURL(srv.URL))
	auth := &DeviceAuthorization{DeviceCode: "dev-1", Interval: 1}

	token, err := flow.Await(context.Background(), auth, 10*time.Second)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if token.AccessToken != "gho_ok" {
		t.Errorf("token = %+v", token)
	}
	if polls.Load() < 2 {
		t.Errorf("expected a pending poll before success, got %d polls", polls.Load())
	}
}

func TestAwaitTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "authorization_pending"})
	}))
	defer srv.Close()

	flow := NewDeviceFlow(WithDeviceTokenURL(srv.URL))
	auth := &DeviceAuthorization{DeviceCode: "dev-1", Interval: 1}

	_, err := flow.Await(context.Background(), auth, 100*time.Millisecond)
	if !errors.Is(err, connection.ErrOAuthTimedOut) {
		t.Errorf("expected ErrOAuthTimedOut, got %v", err)
	}
}

func TestAwaitCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "authorization_pending"})
	}))
	defer srv.Close()

	flow := NewDeviceFlow(WithDeviceTokenURL(srv.URL))
	auth := &DeviceAuthorization{DeviceCode: "dev-1", Interval: 1}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := flow.Await(ctx, auth, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestAwaitExpiredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "expired_token"})
	}))
	defer srv.Close()

	flow := NewDeviceFlow(WithDeviceTokenURL(srv.URL))
	auth := &DeviceAuthorization{DeviceCode: "dev-1", Interval: 1}

	_, err := flow.Await(context.Background(), auth, 10*time.Second)
	if !errors.Is(err, connection.ErrOAuthTimedOut) {
		t.Errorf("expected ErrOAuthTimedOut, got %v", err)
	}
}

func TestAwaitAccessDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "access_denied"})
	}))
	defer srv.Close()

	flow := NewDeviceFlow(WithDeviceTokenURL(srv.URL))
	auth := &DeviceAuthorization{DeviceCode: "dev-1", Interval: 1}

	_, err := flow.Await(context.Background(), auth, 10*time.Second)
	if !errors.Is(err, connection.ErrOAuthExchangeFailed) {
		t.Errorf("expected ErrOAuthExchangeFailed, got %v", err)
	}
}

func TestAwaitSlowDown(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) == 1 {
			json.NewEncoder(w).Encode(map[string]any{"error": "slow_down", "interval": 2})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "gho_ok"})
	}))
	defer srv.Close()

	flow := NewDeviceFlow(WithDeviceTokenURL(srv.URL))
	auth := &DeviceAuthorization{DeviceCode: "dev-1", Interval: 1}

	start := time.Now()
	if _, err := flow.Await(context.Background(), auth, 30*time.Second); err != nil {
		t.Fatalf("Await: %v", err)
	}
	// First poll after 1s, second after the widened 2s interval.
	if elapsed := time.Since(start); elapsed < 2500*time.Millisecond {
		t.Errorf("slow_down not honored, finished in %v", elapsed)
	}
}
