package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"inigma/internal/domain"
	"inigma/internal/ratelimit"
)

func NewRouter(h *Handler, gate *RateLimitGate, log *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(RequestLogger(log))
	r.Use(ContentLengthValidator(domain.MaxRequestBodySize))

	r.Get("/health", h.HandleHealth)

	r.Route("/api", func(r chi.Router) {
		r.With(gate.Gate(ratelimit.OpCreate)).Post("/create", h.HandleCreate)
		r.With(gate.Gate(ratelimit.OpView)).Post("/view", h.HandleView)
		r.With(gate.Gate(ratelimit.OpClaim)).Post("/claim", h.HandleClaim)
		r.With(gate.Gate(ratelimit.OpRename)).Post("/rename", h.HandleRename)
		r.With(gate.Gate(ratelimit.OpDelete)).Post("/delete", h.HandleDelete)
		r.With(gate.Gate(ratelimit.OpList)).Post("/list-secrets", h.HandleListOwned)
		r.With(gate.Gate(ratelimit.OpPending)).Post("/list-pending-secrets", h.HandleListPending)
	})

	return r
}
