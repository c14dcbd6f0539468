package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/expensehub/internal/cache"
	"github.com/geocoder89/expensehub/internal/config"
	"github.com/geocoder89/expensehub/internal/domain/category"
	"github.com/geocoder89/expensehub/internal/http/handlers"
	"github.com/geocoder89/expensehub/internal/http/middlewares"
	"github.com/geocoder89/expensehub/internal/observability"
	"github.com/geocoder89/expensehub/internal/repo/postgres"
	"github.com/geocoder89/expensehub/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20 // 1 MiB

func NewRouter(
	cfg config.Config,
	log *slog.Logger,
	pool *pgxpool.Pool,
	reg *prometheus.Registry,
	taxonomy *category.Taxonomy,
	summaries *cache.SummaryCache,
) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	prom := observability.NewProm(reg)

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(prom.GinHandleMiddleware())

	if cfg.OTLPEndpoint != "" {
		r.Use(otelgin.Middleware("expensehub-api"))
	}

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	expensesRepo := postgres.NewExpensesRepo(pool, prom)

	sessions := session.NewManager(usersRepo, cfg.SessionTTL())

	// wire up handlers
	authHandler := handlers.NewAuthHandler(sessions)
	expensesHandler := handlers.NewExpensesHandler(expensesRepo, taxonomy, summaries)
	categoriesHandler := handlers.NewCategoriesHandler(taxonomy, cache.New(10*time.Minute))

	// open endpoints
	r.POST("/signup", authHandler.SignUp)
	r.POST("/login", authHandler.Login)

	// session endpoints; logout and status resolve the token themselves
	r.POST("/auth/logout", authHandler.Logout)
	r.GET("/auth/session", authHandler.SessionStatus)

	// everything below requires a live session
	authMw := middlewares.NewAuthMiddleware(sessions)
	protected := r.Group("/", authMw.RequireSession())

	protected.POST("/expenses", expensesHandler.AddExpense)
	protected.GET("/expenses", expensesHandler.ListExpenses)
	protected.GET("/expenses/search", expensesHandler.SearchExpenses)
	protected.GET("/expenses/range", expensesHandler.ListByRange)
	protected.GET("/expenses/summary", expensesHandler.SummarizeByRange)
	protected.GET("/expenses/:id", expensesHandler.GetExpenseById)
	protected.PUT("/expenses/:id", expensesHandler.UpdateExpense)
	protected.DELETE("/expenses/:id", expensesHandler.DeleteExpense)

	protected.GET("/categories", categoriesHandler.ListCategories)

	return r
}
