package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/repairdesk/repairdesk-backend/api/controllers"
	"github.com/repairdesk/repairdesk-backend/api/middleware"
	"github.com/repairdesk/repairdesk-backend/internal/customers"
	"github.com/repairdesk/repairdesk-backend/internal/dashboard"
	"github.com/repairdesk/repairdesk-backend/internal/ledger"
	"github.com/repairdesk/repairdesk-backend/internal/notes"
	"github.com/repairdesk/repairdesk-backend/internal/notifications"
	"github.com/repairdesk/repairdesk-backend/internal/products"
	"github.com/repairdesk/repairdesk-backend/internal/storeinfo"
	"github.com/repairdesk/repairdesk-backend/internal/transactions"
	"github.com/repairdesk/repairdesk-backend/pkg/config"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
	"github.com/repairdesk/repairdesk-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface depends on. Redis is
// optional; without it rate limiting and idempotency are disabled.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         *redis.Client
	Customers     customers.Service
	Products      products.Service
	Transactions  transactions.Service
	Ledger        ledger.Service
	Notes         notes.Service
	StoreInfo     storeinfo.Service
	Notifications notifications.Service
	Dashboard     *dashboard.Service
	Now           func() time.Time
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	deps := map[string]controllers.Pinger{}
	if p.DB != nil {
		deps["db"] = p.DB
	}
	if p.Redis != nil {
		deps["redis"] = p.Redis
	}

	var idempotencyStore redis.IdempotencyStore
	policy := middleware.NewRateLimitPolicy("api", cfg.RateLimit.Window, cfg.RateLimit.IPLimit, cfg.RateLimit.OwnerLimit)
	rateLimit := func(next http.Handler) http.Handler { return next }
	if p.Redis != nil {
		idempotencyStore = p.Redis
		rateLimit = middleware.RateLimit(policy, p.Redis, logg)
	}
	// stock-moving writes must carry a key; other creates dedupe when sent one
	stockWrite := middleware.Idempotent(idempotencyStore, logg, middleware.IdempotencyPolicy{TTL: 7 * 24 * time.Hour, Required: true})
	create := middleware.Idempotent(idempotencyStore, logg, middleware.IdempotencyPolicy{TTL: 24 * time.Hour})

	// unauthenticated routes get an in-process per-IP ceiling that works
	// without redis
	publicLimit := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimit.IPLimit > 0 && cfg.RateLimit.Window > 0 {
		publicLimit = httprate.LimitByIP(cfg.RateLimit.IPLimit, cfg.RateLimit.Window)
	}

	var summarizer controllers.DashboardSummarizer
	if p.Dashboard != nil {
		summarizer = p.Dashboard
	}

	r.Route("/health", func(r chi.Router) {
		r.Use(publicLimit)
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Use(publicLimit)
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(rateLimit)

		r.Get("/ping", controllers.PrivatePing())
		r.Get("/dashboard", controllers.DashboardSummary(summarizer, logg))

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", controllers.ListCustomers(p.Customers, logg))
			r.With(create).Post("/", controllers.CreateCustomer(p.Customers, logg))
			r.Get("/search", controllers.SearchCustomers(p.Customers, logg))
			r.Get("/{customerId}", controllers.GetCustomer(p.Customers, logg))
			r.Patch("/{customerId}", controllers.UpdateCustomer(p.Customers, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(p.Products, logg))
			r.With(create).Post("/", controllers.CreateProduct(p.Products, logg))
			r.Get("/{productId}", controllers.GetProduct(p.Products, logg))
			r.Put("/{productId}", controllers.UpdateProduct(p.Products, logg))
			r.Delete("/{productId}", controllers.DeleteProduct(p.Products, logg))
			r.With(stockWrite).Post("/{productId}/adjust", controllers.AdjustProductQuantity(p.Products, logg))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", controllers.ListTransactions(p.Transactions, logg))
			r.With(stockWrite).Post("/", controllers.CreateTransaction(p.Transactions, logg))
			r.Get("/totals", controllers.TransactionTotals(p.Transactions, logg, p.Now))
			r.Get("/export", controllers.ExportTransactions(p.Transactions, logg, p.Now))
			r.Get("/{transactionId}", controllers.GetTransaction(p.Transactions, logg))
		})

		r.Route("/ledger", func(r chi.Router) {
			r.Get("/", controllers.ListLedgerEntries(p.Ledger, logg))
			r.With(create).Post("/", controllers.CreateLedgerEntry(p.Ledger, logg))
			r.Get("/{entryId}", controllers.GetLedgerEntry(p.Ledger, logg))
			r.Put("/{entryId}", controllers.UpdateLedgerEntry(p.Ledger, logg))
			r.Delete("/{entryId}", controllers.DeleteLedgerEntry(p.Ledger, logg))
		})

		r.Route("/notes", func(r chi.Router) {
			r.Get("/", controllers.ListNotes(p.Notes, logg))
			r.Post("/", controllers.CreateNote(p.Notes, logg))
			r.Get("/{noteId}", controllers.GetNote(p.Notes, logg))
			r.Put("/{noteId}", controllers.UpdateNote(p.Notes, logg))
			r.Post("/{noteId}/pin", controllers.PinNote(p.Notes, logg))
			r.Delete("/{noteId}", controllers.DeleteNote(p.Notes, logg))
		})

		r.Route("/store", func(r chi.Router) {
			r.Get("/", controllers.StoreProfile(p.StoreInfo, logg))
			r.Put("/", controllers.StoreUpdate(p.StoreInfo, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
			r.Delete("/{notificationId}", controllers.DismissNotification(p.Notifications, logg))
		})
	})

	return r
}
