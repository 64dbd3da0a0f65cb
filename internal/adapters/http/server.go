package httpadapter

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"hireflow/internal/domain"
	"hireflow/internal/ports"
	"hireflow/internal/services/accounts"
	"hireflow/internal/services/analytics"
	"hireflow/internal/services/campaigns"
	"hireflow/internal/services/messaging"
	"hireflow/internal/services/pipeline"
)

// Services are the application services the handlers drive.
type Services struct {
	Campaigns *campaigns.Service
	Pipeline  *pipeline.Service
	Composer  *messaging.Composer
	Drafts    *messaging.Drafts
	// Enhance serves individual messages, BulkEnhance bulk ones.
	Enhance     messaging.Enhancer
	BulkEnhance messaging.Enhancer
	Accounts    *accounts.Service
	Analytics   *analytics.Service
	Store       ports.Pinger
}

// Info is what the diagnostic endpoints may reveal about the deployment.
type Info struct {
	Env                string
	Backend            string
	DatabaseConfigured bool
	GoogleClientIDSet  bool
	CompanyName        string
}

type Server struct {
	svc  Services
	info Info
	log  *zap.Logger
	now  func() time.Time
}

func New(svc Services, info Info, log *zap.Logger) *Server {
	return &Server{svc: svc, info: info, log: log, now: time.Now}
}

// Routes returns the full router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/import/template", s.importTemplate)
		r.Post("/session", s.createSession)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/profile", s.getProfile)
			r.Put("/profile", s.putProfile)
			r.Post("/onboarding/complete", s.completeOnboarding)

			r.Get("/templates", s.listTemplates)
			r.Post("/compose", s.compose)
			r.Post("/enhance", s.enhance)

			r.Route("/campaigns", func(r chi.Router) {
				r.Get("/", s.listCampaigns)
				r.Post("/", s.createCampaign)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(s.ownCampaign)
					r.Get("/", s.getCampaign)
					r.Patch("/", s.patchCampaign)
					r.Delete("/", s.deleteCampaign)

					r.Post("/candidates", s.addCandidate)
					r.Route("/candidates/{cid}", func(r chi.Router) {
						r.Patch("/notes", s.updateNotes)
						r.Post("/messages", s.sendMessage)
						r.Post("/stage", s.moveCandidate)
						r.Get("/draft", s.getDraft)
						r.Put("/draft", s.putDraft)
					})

					r.Post("/bulk/stage", s.bulkStage)
					r.Post("/bulk/delete", s.bulkDelete)
					r.Post("/bulk/email", s.bulkEmail)

					r.Post("/import/preview", s.importPreview)
					r.Post("/import", s.importCandidates)
				})
			})
		})
	})

	r.Route("/.netlify/functions", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodPost, http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
		}))
		r.Post("/save-analytics", s.saveAnalytics)
		r.Get("/get-analytics", s.getAnalytics)
		r.Post("/save-feedback", s.saveFeedback)
		r.Get("/debug-env", s.debugEnv)
		r.Get("/test-database", s.testDatabase)
		r.Get("/test-analytics", s.testAnalytics)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

type userKey struct{}

// authenticate resolves the bearer token to a stored user. Users must have
// signed in through /api/session first.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if token == "" {
			s.fail(w, r, &runtimeError{code: http.StatusUnauthorized, msg: "missing bearer token"})
			return
		}
		id, err := s.svc.Accounts.Identify(token)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		u, err := s.svc.Accounts.User(r.Context(), id)
		if err != nil {
			if isNotFound(err) {
				err = &runtimeError{code: http.StatusUnauthorized, msg: "unknown user, sign in first"}
			}
			s.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, u)))
	})
}

func currentUser(r *http.Request) *domain.User {
	u, _ := r.Context().Value(userKey{}).(*domain.User)
	return u
}

// ownCampaign answers 404 for campaigns owned by someone else, the same as
// for ids that do not exist.
func (s *Server) ownCampaign(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.ownedCampaign(r, chi.URLParam(r, "id")); err != nil {
			s.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) ownedCampaign(r *http.Request, id string) (*domain.Campaign, error) {
	c, err := s.svc.Campaigns.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if c.UserID != currentUser(r).ID {
		return nil, domain.ErrNotFound
	}
	return c, nil
}
