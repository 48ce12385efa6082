package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"sweet-bazaar/internal/app/economy"
	"sweet-bazaar/internal/botactions"
	"sweet-bazaar/internal/config"
	"sweet-bazaar/internal/jobs"
	"sweet-bazaar/internal/ledger"
	"sweet-bazaar/internal/store"
	"sweet-bazaar/internal/treasury"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

func NewRouter(st *store.Store, cfg config.ServerConfig, eng *ledger.Engine, tc *treasury.Controller, rec *botactions.Recorder, rp *jobs.RefundProcessor, ej *jobs.ExpirationJob) *chi.Mux {
	svc := economy.NewService(st, eng, tc, rec, cfg)

	economyHandlers := NewEconomyHandlers(svc)
	adminHandlers := NewAdminHandlers(st, tc, rp, ej)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Get("/wallets/{owner_kind}/{owner_id}/balance", economyHandlers.Balance())
		r.Get("/wallets/{owner_kind}/{owner_id}/entries", economyHandlers.Ledger())
		r.Post("/transactions", economyHandlers.Commit())
		r.Post("/rewards", economyHandlers.Reward())
		r.Post("/purchases", economyHandlers.Purchase())

		r.Post("/bots/register", economyHandlers.RegisterBot())
		r.Post("/bots/can_afford", economyHandlers.CanAfford())
		r.Post("/bots/spend", economyHandlers.BotSpend())
		r.Post("/bots/disqualify", economyHandlers.Disqualify())

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
			r.Get("/admin/treasury", adminHandlers.TreasuryState())
			r.Post("/admin/treasury/refill", adminHandlers.Refill())
			r.Post("/admin/treasury/reset_daily", adminHandlers.ResetDailySpend())
			r.Post("/admin/jobs/refunds/run", adminHandlers.RunRefunds())
			r.Post("/admin/jobs/expirations/run", adminHandlers.RunExpirations())
			r.Get("/admin/wallets", adminHandlers.ListWallets())
			r.Get("/admin/wallets/{wallet_id}/audit", adminHandlers.AuditWallet())
			r.Get("/admin/transactions", adminHandlers.ListTransactions())
			r.Get("/admin/entries", adminHandlers.ListEntries())
			r.Get("/admin/bot_actions", adminHandlers.ListBotActions())

			r.Get("/admin/debug/vars", expvar.Handler().ServeHTTP)
		})
	})

	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 32)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
