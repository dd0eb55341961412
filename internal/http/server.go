package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	Router *chi.Mux
}

func NewServer(handler *Handler) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(cors)
	r.Use(metricsMiddleware)

	r.Get("/health", handler.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", handler.Hub.Serve)

	r.Route("/api", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", handler.GetSession)
			r.Post("/connect", handler.Connect)
			r.Post("/disconnect", handler.Disconnect)
		})
		r.Route("/offers", func(r chi.Router) {
			r.Get("/", handler.ListOffers)
			r.Get("/mine", handler.ListMyOffers)
			r.Post("/", handler.CreateOffer)
			r.Post("/{id}/cancel", handler.CancelOffer)
		})
		r.Route("/requests", func(r chi.Router) {
			r.Get("/pending", handler.ListPendingRequests)
			r.Get("/mine", handler.ListMyRequests)
			r.Post("/", handler.RequestLoan)
			r.Post("/{id}/approve", handler.ApproveRequest)
			r.Post("/{id}/reject", handler.RejectRequest)
		})
		r.Route("/loans", func(r chi.Router) {
			r.Get("/mine", handler.ListMyLoans)
			r.Post("/{id}/repay", handler.RepayLoan)
		})
		r.Get("/actions", handler.ListActions)
		r.Post("/documents", handler.UploadDocument)
	})

	return &Server{Router: r}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders the error taxonomy the UI keys off: kind tells it
// whether to show a banner (connectivity), a quiet cancel note (rejected),
// or the ledger's own reason string (contract).
func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, map[string]string{"kind": kind, "error": msg})
}
