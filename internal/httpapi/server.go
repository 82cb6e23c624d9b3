package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evermirror/twinhub/internal/models"
	"github.com/evermirror/twinhub/internal/razorpay"
	"github.com/evermirror/twinhub/internal/service"
	"github.com/evermirror/twinhub/internal/storage"
)

const signatureHeader = "X-Razorpay-Signature"

type Server struct {
	addr     string
	username string
	password string
	log      *slog.Logger

	users      *service.UserService
	twins      *service.TwinService
	onboarding *service.OnboardingService
	webhooks   *service.WebhookService
	uploader   *storage.Uploader

	router *chi.Mux
}

func NewServer(addr, username, password string, log *slog.Logger, users *service.UserService, twins *service.TwinService, onboarding *service.OnboardingService, webhooks *service.WebhookService, uploader *storage.Uploader) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:       addr,
		username:   username,
		password:   password,
		log:        log,
		users:      users,
		twins:      twins,
		onboarding: onboarding,
		webhooks:   webhooks,
		uploader:   uploader,
		router:     r,
	}

	r.Post("/webhook/razorpay", s.handlePaymentWebhook)

	r.Post("/users", s.handleRegisterUser)
	r.Get("/users/{id}", s.handleGetUser)
	r.Get("/users/{id}/billing", s.handleBillingHistory)
	r.Post("/users/{id}/purchases", s.handlePurchaseCredits)

	r.Post("/onboarding", s.handleStartOnboarding)
	r.Get("/onboarding/{id}", s.handleGetSession)
	r.Post("/onboarding/assets", s.handleUploadAsset)

	r.Get("/twins/{id}", s.handleGetTwin)
	r.Post("/twins/{id}/interactions", s.handleTwinInteraction)

	r.Group(func(protected chi.Router) {
		protected.Use(s.basicAuthMiddleware())
		protected.Get("/admin/reports/billing", s.handleBillingReport)
		protected.Post("/admin/users/{id}/credits", s.handleGrantCredits)
		protected.Post("/admin/twins/{id}/avatar", s.handleReviewAvatar)
		protected.Post("/admin/refunds", s.handleRecordRefund)
		protected.Handle("/admin/metrics", promhttp.Handler())
	})

	return s
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("http shutdown error", "err", err)
		}
	}()

	s.log.Info("http server listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// handlePaymentWebhook is the provider-facing entry point. Signature
// mismatches get 400; everything verified gets acknowledged with 200 so the
// provider never retries destructively — a correlation miss is signaled in
// the body, not the status.
func (s *Server) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}

	result, err := s.webhooks.HandleEvent(r.Context(), body, r.Header.Get(signatureHeader))
	if err != nil {
		if errors.Is(err, service.ErrSignatureMismatch) {
			http.Error(w, "invalid signature", http.StatusBadRequest)
			return
		}
		s.log.Error("webhook processing failed", "err", err)
		http.Error(w, "webhook processing failed", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": result})
}

type registerUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	user, err := s.users.Register(r.Context(), req.Email, req.Name)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	user, err := s.users.Get(r.Context(), id)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if user == nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleBillingHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	records, err := s.users.BillingHistory(r.Context(), id)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

type purchaseRequest struct {
	Pack string `json:"pack"`
}

func (s *Server) handlePurchaseCredits(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	result, err := s.users.PurchaseCredits(r.Context(), id, req.Pack)
	if err != nil {
		if errors.Is(err, razorpay.ErrProviderUnavailable) {
			s.log.Error("provider unavailable", "err", err)
			http.Error(w, "payment provider unavailable, try again", http.StatusServiceUnavailable)
			return
		}
		s.badRequest(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, result)
}

type startOnboardingRequest struct {
	UserID         int64          `json:"user_id"`
	PlanType       string         `json:"plan_type"`
	Answers        models.Answers `json:"answers"`
	VoiceSampleURL string         `json:"voice_sample_url"`
	PortraitURL    string         `json:"portrait_url"`
}

func (s *Server) handleStartOnboarding(w http.ResponseWriter, r *http.Request) {
	var req startOnboardingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	result, err := s.onboarding.Start(r.Context(), service.StartOnboardingInput{
		UserID:         req.UserID,
		PlanType:       req.PlanType,
		Answers:        req.Answers,
		VoiceSampleURL: req.VoiceSampleURL,
		PortraitURL:    req.PortraitURL,
	})
	if err != nil {
		if errors.Is(err, razorpay.ErrProviderUnavailable) {
			s.log.Error("provider unavailable", "err", err)
			http.Error(w, "payment provider unavailable, try again", http.StatusServiceUnavailable)
			return
		}
		s.badRequest(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	session, err := s.onboarding.Get(r.Context(), id)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if session == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleUploadAsset(w http.ResponseWriter, r *http.Request) {
	if s.uploader == nil {
		http.Error(w, "asset storage is not configured", http.StatusServiceUnavailable)
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, 20<<20))
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	url, err := s.uploader.Upload(r.Context(), data, r.Header.Get("Content-Type"))
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

func (s *Server) handleGetTwin(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	twin, err := s.twins.Get(r.Context(), id)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if twin == nil {
		http.Error(w, "twin not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, twin)
}

type interactionRequest struct {
	UserID int64 `json:"user_id"`
}

// handleTwinInteraction charges the caller for one interaction with the
// twin. The conversational reply itself comes from the externally-owned
// generative service; this endpoint settles the credit side.
func (s *Server) handleTwinInteraction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req interactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	twin, err := s.twins.Get(r.Context(), id)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if twin == nil {
		http.Error(w, "twin not found", http.StatusNotFound)
		return
	}

	if err := s.users.ConsumeForInteraction(r.Context(), req.UserID); err != nil {
		if errors.Is(err, service.ErrCreditsRequired) {
			http.Error(w, "insufficient credits", http.StatusPaymentRequired)
			return
		}
		s.internalError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"twin_id":  twin.ID,
		"greeting": twin.Greeting,
	})
}

func (s *Server) handleBillingReport(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.users.BillingSummary(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summaries)
}

type grantCreditsRequest struct {
	Credits int `json:"credits"`
}

func (s *Server) handleGrantCredits(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req grantCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := s.users.GrantCredits(r.Context(), id, req.Credits); err != nil {
		s.badRequest(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type avatarReviewRequest struct {
	Decision string `json:"decision"`
}

func (s *Server) handleReviewAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req avatarReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	twin, err := s.twins.ReviewAvatar(r.Context(), id, req.Decision)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, twin)
}

type refundRequest struct {
	UserID  int64 `json:"user_id"`
	Amount  int   `json:"amount"`
	Credits int   `json:"credits"`
}

func (s *Server) handleRecordRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	record, err := s.users.RecordRefund(r.Context(), req.UserID, req.Amount, req.Credits)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, record)
}

func (s *Server) basicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != s.username || pass != s.password {
				w.Header().Set("WWW-Authenticate", `Basic realm="twinhub"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error("handler error", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id")
	}
	return id, nil
}
