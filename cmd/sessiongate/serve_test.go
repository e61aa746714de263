package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-logr/logr"
	"github.com/sessiongate/sessiongate/handler"
)

func testServeConfig(redisAddr string) serveConfig {
	return serveConfig{
		JWTSecret:         "0123456789abcdef0123456789abcdef",
		TokenTTL:          time.Hour,
		RedisAddr:         redisAddr,
		RedisPrefix:       "sg:test",
		Metrics:           true,
		BootstrapUser:     "admin@example.com",
		BootstrapPassword: "correct-horse-battery",
	}
}

func TestNewAppRequiresSecret(t *testing.T) {
	cfg := testServeConfig("")
	cfg.JWTSecret = ""
	if _, err := newApp(context.Background(), cfg, logr.Discard()); err == nil {
		t.Fatal("expected error without a signing secret")
	}
}

func TestNewAppRejectsShortSecretWithoutEchoingIt(t *testing.T) {
	cfg := testServeConfig("")
	cfg.JWTSecret = "tiny-secret-value"
	_, err := newApp(context.Background(), cfg, logr.Discard())
	if err == nil {
		t.Fatal("expected error for short secret")
	}
	if strings.Contains(err.Error(), cfg.JWTSecret) {
		t.Fatalf("error echoed the secret: %v", err)
	}
}

func TestNewAppUnreachableRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	if _, err := newApp(context.Background(), testServeConfig(addr), logr.Discard()); err == nil {
		t.Fatal("expected error for unreachable redis")
	}
}

func TestAppServesLoginLogoutFlow(t *testing.T) {
	mr := miniredis.RunT(t)

	a, err := newApp(context.Background(), testServeConfig(mr.Addr()), logr.Discard())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.close()

	srv := httptest.NewServer(a.handler)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/login", "application/json",
		strings.NewReader(`{"username":"ADMIN@example.com","password":"correct-horse-battery"}`))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	var login handler.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || login.Token == "" {
		t.Fatalf("expected token, got %d %+v", resp.StatusCode, login)
	}

	logout := func() int {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/logout", nil)
		req.Header.Set("Authorization", "Bearer "+login.Token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("logout request: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}
	if code := logout(); code != http.StatusOK {
		t.Fatalf("expected logout 200, got %d", code)
	}
	if code := logout(); code != http.StatusForbidden {
		t.Fatalf("expected revoked token to be rejected with 403, got %d", code)
	}
	if len(mr.Keys()) != 1 || !strings.HasPrefix(mr.Keys()[0], "sg:test:") {
		t.Fatalf("expected one revocation key in redis, got %v", mr.Keys())
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected metrics 200, got %d", resp.StatusCode)
	}
}

func TestSweepLoopStopsOnCancel(t *testing.T) {
	cfg := testServeConfig("")
	cfg.SweepInterval = time.Millisecond
	a, err := newApp(context.Background(), cfg, logr.Discard())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.sweepLoop(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep loop did not stop after cancel")
	}
}
