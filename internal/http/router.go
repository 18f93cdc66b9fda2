package http

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig wires handlers and middleware into the router.
type RouterConfig struct {
	Holders      *HolderHandler
	Catalog      *CatalogHandler
	Reservations *ReservationHandler
	Waitlist     *WaitlistHandler
	Health       Pinger
	Middleware   []func(http.Handler) http.Handler
}

// NewRouter builds the HTTP routing table. Middleware wraps the whole
// router in declaration order.
func NewRouter(cfg RouterConfig) http.Handler {
	router := httprouter.New()

	if cfg.Health != nil {
		router.HandlerFunc(http.MethodGet, "/healthz", func(w http.ResponseWriter, r *http.Request) {
			if err := cfg.Health.Ping(r.Context()); err != nil {
				http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}

	if cfg.Holders != nil {
		router.POST("/v1/holders", cfg.Holders.Register)
		router.POST("/v1/holders/:id/rules-acceptance", cfg.Holders.AcceptRules)
		router.GET("/v1/holders/:id/reservation", cfg.Holders.ActiveReservation)
	}

	if cfg.Catalog != nil {
		router.POST("/v1/copies", cfg.Catalog.AddCopy)
		router.GET("/v1/copies", cfg.Catalog.ListAvailable)
		router.GET("/v1/copies/holder", cfg.Catalog.CurrentHolders)
	}

	if cfg.Reservations != nil {
		router.POST("/v1/reservations", cfg.Reservations.Create)
		router.POST("/v1/reservations/:id/return", cfg.Reservations.Return)
		router.POST("/v1/reservations/:id/extension", cfg.Reservations.Extend)
	}

	if cfg.Waitlist != nil {
		router.PUT("/v1/waitlist", cfg.Waitlist.Join)
		router.DELETE("/v1/waitlist", cfg.Waitlist.Leave)
	}

	var handler http.Handler = router
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}
