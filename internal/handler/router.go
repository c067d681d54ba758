package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"motionportal/internal/auth"
	"motionportal/internal/logger"
)

type Handlers struct {
	Deliverables *DeliverableHandler
	Versions     *VersionHandler
	Annotations  *AnnotationHandler
	Comments     *CommentHandler
	Approvals    *ApprovalHandler
	Health       *HealthHandler
}

func NewRouter(h Handlers, verifier auth.Verifier, allowedOrigins []string, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Health.Check)

	r.Route("/deliverables/{id}", func(r chi.Router) {
		// Чтение без проверки сессии
		r.Get("/", h.Deliverables.Get)
		r.Get("/versions", h.Versions.List)
		r.Get("/annotations", h.Annotations.List)
		r.Get("/timeline-comments", h.Comments.List)
		r.Get("/approvals", h.Approvals.History)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(verifier, log))

			r.Post("/versions", h.Versions.Create)
			r.Post("/versions/upload", h.Versions.Upload)
			r.Get("/versions/{versionId}/download", h.Versions.Download)
			r.Get("/versions/{versionId}/stream/{file}", h.Versions.Stream)

			r.Post("/annotations", h.Annotations.Create)
			r.Delete("/annotations/{annotationId}", h.Annotations.Delete)

			r.Post("/timeline-comments", h.Comments.Create)
			r.Patch("/timeline-comments/{commentId}", h.Comments.Update)
			r.Delete("/timeline-comments/{commentId}", h.Comments.Delete)

			r.Post("/approve", h.Approvals.Approve)
			r.Post("/request-changes", h.Approvals.RequestChanges)
		})
	})

	return r
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"requestId", middleware.GetReqID(r.Context()),
			)
		})
	}
}
