package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/wrale/oauth2-device-store/devicecode"
	"github.com/wrale/oauth2-device-store/repository"
)

func newTestServer(t *testing.T) (*server, *repository.DeviceCodeRepository) {
	t.Helper()

	store := devicecode.NewMemoryStore()
	repo := repository.New(store,
		repository.ClientManagerFunc(lookupClient),
		repository.StringScopeConverter{},
		repository.ClientRepositoryFunc(buildClientEntity),
		repository.WithVerificationURI("http://localhost:8080/device"),
	)

	cfg := Config{BaseURL: "http://localhost:8080"}
	srv := newServer(cfg, repo, store, log.New(io.Discard, "", 0))
	return srv, repo
}

func persistTestCode(t *testing.T, repo *repository.DeviceCodeRepository, identifier, userCode string) {
	t.Helper()

	entity := repo.NewDeviceCode()
	entity.Identifier = identifier
	entity.UserCode = userCode
	entity.ExpiresAt = time.Now().Add(10 * time.Minute)
	entity.Client = repository.StaticClient("test-client")
	if err := repo.PersistDeviceCode(context.Background(), entity); err != nil {
		t.Fatalf("PersistDeviceCode: %v", err)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), `"healthy"`) {
		t.Errorf("expected healthy status, got %s", w.Body.String())
	}
}

func TestHandleVerifyForm(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/device?code=BCDF-GHJK", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "BCDF-GHJK") {
		t.Error("expected prefilled code in form")
	}
}

func TestHandleVerifySubmit(t *testing.T) {
	tests := []struct {
		name       string
		userCode   string
		remoteUser string
		persist    bool
		wantStatus int
	}{
		{
			name:       "approves a pending code",
			userCode:   "BCDF-GHJK",
			remoteUser: "user-1",
			persist:    true,
			wantStatus: http.StatusOK,
		},
		{
			name:       "rejects malformed code",
			userCode:   "nope",
			remoteUser: "user-1",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "rejects unknown code",
			userCode:   "XXXX-ZZZZ",
			remoteUser: "user-1",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "requires authentication",
			userCode:   "BCDF-GHJK",
			persist:    true,
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, repo := newTestServer(t)
			if tt.persist {
				persistTestCode(t, repo, "dc-1", "BCDF-GHJK")
			}

			form := url.Values{"code": {tt.userCode}}
			req := httptest.NewRequest(http.MethodPost, "/device/verify",
				strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.remoteUser != "" {
				req.Header.Set("X-Remote-User", tt.remoteUser)
			}

			w := httptest.NewRecorder()
			srv.router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestHandleVerifySubmitMarksApproved(t *testing.T) {
	srv, repo := newTestServer(t)
	persistTestCode(t, repo, "dc-1", "BCDF-GHJK")

	form := url.Values{"code": {"BCDF-GHJK"}}
	req := httptest.NewRequest(http.MethodPost, "/device/verify",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Remote-User", "user-1")

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	entity, err := repo.GetDeviceCodeEntityByDeviceCode(context.Background(), "dc-1")
	if err != nil {
		t.Fatalf("GetDeviceCodeEntityByDeviceCode: %v", err)
	}
	if !entity.UserApproved {
		t.Error("expected code to be approved after verify")
	}
	if entity.UserIdentifier != "user-1" {
		t.Errorf("expected user identifier %q, got %q", "user-1", entity.UserIdentifier)
	}
}

func TestHandleDeny(t *testing.T) {
	srv, repo := newTestServer(t)
	persistTestCode(t, repo, "dc-1", "BCDF-GHJK")

	form := url.Values{"code": {"BCDF-GHJK"}}
	req := httptest.NewRequest(http.MethodPost, "/device/deny",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	revoked, err := repo.IsDeviceCodeRevoked(context.Background(), "dc-1")
	if err != nil {
		t.Fatalf("IsDeviceCodeRevoked: %v", err)
	}
	if !revoked {
		t.Error("expected code to be revoked after deny")
	}
}
