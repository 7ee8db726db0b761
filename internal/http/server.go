package http

import (
	"log/slog"
	"net/http"

	"NovaRamp/internal/auth"
	"NovaRamp/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	Router *chi.Mux
}

type Options struct {
	Auth           auth.Middleware
	Metrics        *metrics.Metrics
	Proxy          http.Handler
	AllowedOrigins []string
	Logger         *slog.Logger
}

func NewServer(handler *Handler, opts Options) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(opts.Logger, opts.Metrics))
	r.Use(cors(opts.AllowedOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.With(opts.Auth.RequireWithQuery).Get("/orders/stream", handler.StreamOrders)

	r.Group(func(r chi.Router) {
		r.Use(opts.Auth.Require)

		r.Get("/quotes", handler.GetQuotes)

		r.Get("/orders", handler.GetOrders)
		r.Post("/orders", handler.CreateOrder)
		r.Put("/orders", handler.UpdateOrder)

		r.Route("/makers", func(r chi.Router) {
			r.Get("/", handler.ListDeposits)
			r.Post("/validate", handler.ValidatePayee)
			r.Post("/create", handler.CreateDeposit)
			r.Post("/{depositId}/deactivate", handler.DeactivateDeposit)
		})

		r.Post("/session", handler.Session)
		r.Get("/providers", handler.ListProviders)
		r.Get("/chains", handler.ListChains)
		r.Get("/chains/health", handler.ChainHealth)

		r.Route("/zktls", func(r chi.Router) {
			r.Get("/status", handler.ExtensionStatus)
			r.Post("/connect", handler.ExtensionConnect)
			r.Post("/authenticate", handler.ExtensionAuthenticate)
			r.Get("/sessions/{sessionId}/metadata", handler.ExtensionMetadata)
			r.Post("/proofs", handler.GenerateProof)
			r.Get("/proofs/{proofId}", handler.FetchProof)
		})

		if opts.Proxy != nil {
			r.Handle("/proxy/*", opts.Proxy)
		}
	})

	return &Server{Router: r}
}
