package main

import (
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wrale/oauth2-device-store/devicecode"
	"github.com/wrale/oauth2-device-store/repository"
	"github.com/wrale/oauth2-device-store/validation"
)

type server struct {
	cfg    Config
	router *chi.Mux
	repo   *repository.DeviceCodeRepository
	store  devicecode.Store
	logger *log.Logger
}

func newServer(cfg Config, repo *repository.DeviceCodeRepository, store devicecode.Store, logger *log.Logger) *server {
	srv := &server{
		cfg:    cfg,
		router: chi.NewRouter(),
		repo:   repo,
		store:  store,
		logger: logger,
	}

	srv.router.Use(middleware.Logger)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(middleware.RealIP)
	srv.router.Use(middleware.Timeout(30 * time.Second))

	srv.routes()
	return srv
}

func (s *server) routes() {
	s.router.Get("/health", s.handleHealth())
	s.router.Get("/device", s.handleVerifyForm())
	s.router.Post("/device/verify", s.handleVerifySubmit())
	s.router.Post("/device/deny", s.handleDeny())
}

// healthResponse is the health check body.
type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Message string `json:"message,omitempty"`
}

func (s *server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		resp := healthResponse{Status: "healthy", Version: Version}
		if err := s.store.CheckHealth(r.Context()); err != nil {
			resp.Status = "unhealthy"
			resp.Message = err.Error()
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			s.logger.Printf("Error encoding health response: %v", err)
		}
	}
}

var verifyFormTemplate = template.Must(template.New("verify").Parse(`<!DOCTYPE html>
<html>
<head><title>Device Authorization</title></head>
<body>
<h1>Enter your code</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="POST" action="/device/verify">
  <input type="text" name="code" value="{{.PrefilledCode}}" autofocus>
  <button type="submit">Approve</button>
  <button type="submit" formaction="/device/deny">Deny</button>
</form>
</body>
</html>`))

var verifyResultTemplate = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head><title>Device Authorization</title></head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
</body>
</html>`))

type formData struct {
	PrefilledCode string
	Error         string
}

type resultData struct {
	Title   string
	Message string
}

// handleVerifyForm shows the user-code entry form. A code query parameter
// prefills the field so verification_uri_complete links work.
func (s *server) handleVerifyForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := formData{PrefilledCode: r.URL.Query().Get("code")}
		s.renderForm(w, http.StatusOK, data)
	}
}

// handleVerifySubmit approves the session matching the submitted user code.
// The approving user comes from the authenticating reverse proxy in front of
// this service.
func (s *server) handleVerifySubmit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		userID := r.Header.Get("X-Remote-User")
		if userID == "" {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		userCode := r.PostFormValue("code")
		if err := validation.ValidateUserCode(userCode); err != nil {
			s.renderForm(w, http.StatusBadRequest, formData{
				PrefilledCode: userCode,
				Error:         "That code is not valid. Check the code on your device and try again.",
			})
			return
		}

		code, err := s.repo.ApproveByUserCode(r.Context(), userCode, userID)
		if err != nil {
			if errors.Is(err, devicecode.ErrInvalidUserCode) {
				s.renderForm(w, http.StatusBadRequest, formData{
					PrefilledCode: userCode,
					Error:         "That code is unknown or has expired. Check your device for a new one.",
				})
				return
			}
			s.logger.Printf("Error approving user code: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		s.renderResult(w, http.StatusOK, resultData{
			Title:   "Device approved",
			Message: "You can return to your device. Application: " + code.ClientID,
		})
	}
}

// handleDeny revokes the session matching the submitted user code.
func (s *server) handleDeny() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		userCode := r.PostFormValue("code")
		if err := s.repo.DenyByUserCode(r.Context(), userCode); err != nil {
			if errors.Is(err, devicecode.ErrInvalidUserCode) {
				s.renderForm(w, http.StatusBadRequest, formData{
					PrefilledCode: userCode,
					Error:         "That code is unknown or has expired.",
				})
				return
			}
			s.logger.Printf("Error denying user code: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		s.renderResult(w, http.StatusOK, resultData{
			Title:   "Device denied",
			Message: "The device has been denied access. You can close this page.",
		})
	}
}

func (s *server) renderForm(w http.ResponseWriter, status int, data formData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := verifyFormTemplate.Execute(w, data); err != nil {
		s.logger.Printf("Error rendering form: %v", err)
	}
}

func (s *server) renderResult(w http.ResponseWriter, status int, data resultData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := verifyResultTemplate.Execute(w, data); err != nil {
		s.logger.Printf("Error rendering result: %v", err)
	}
}
