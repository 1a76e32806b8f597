package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/georgemunganga/shopfront-backend/internal/config"
	"github.com/georgemunganga/shopfront-backend/internal/modules/auth"
	"github.com/georgemunganga/shopfront-backend/internal/modules/cart"
	"github.com/georgemunganga/shopfront-backend/internal/modules/catalog"
	"github.com/georgemunganga/shopfront-backend/internal/modules/inventory"
	"github.com/georgemunganga/shopfront-backend/internal/modules/order"
	"github.com/georgemunganga/shopfront-backend/internal/modules/user"
	"github.com/georgemunganga/shopfront-backend/internal/platform/database"
	"github.com/georgemunganga/shopfront-backend/internal/platform/events"
	"github.com/georgemunganga/shopfront-backend/internal/platform/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logg, err := logger.New(logger.Options{Service: "shopfront-api", Env: cfg.AppEnv, Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logg *zap.Logger) error {
	db, err := database.Open(ctx, database.Options{URL: cfg.DatabaseURL, MaxOpenConns: cfg.DBMaxOpenConns})
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	logg.Info("database ready")

	// ── Optional infrastructure ─────────────────────────────
	var cache catalog.ProductCache = catalog.NopCache{}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logg.Warn("redis unavailable, product cache disabled", zap.Error(err))
		} else {
			cache = catalog.NewRedisCache(rdb, cfg.CacheTTL)
		}
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		conn, ch, err := events.Connect(cfg.AMQPURL, logg)
		if err != nil {
			return err
		}
		defer conn.Close()
		defer ch.Close()
		publisher = events.NewRabbitPublisher(ch)
	}

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(logger.RequestLogger(logg))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.RequestTimeout))
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// ── Identity ────────────────────────────────────────────
	userRepo := user.NewPostgresRepository(db)
	userService := user.NewService(userRepo)
	user.NewHandler(userService).RegisterRoutes(router)

	authService := auth.NewService(userRepo, cfg.JWTSecret, cfg.JWTTTL)
	guard := auth.NewMiddleware(authService)
	auth.NewHandler(authService, userService, guard).RegisterRoutes(router)

	// ── Catalog & Inventory ─────────────────────────────────
	catalogService := catalog.NewService(catalog.NewPostgresRepository(db), cache, logg.Named("catalog"))
	catalog.NewHandler(catalogService, guard).RegisterRoutes(router)

	inventoryService := inventory.NewService(inventory.NewPostgresRepository(db), publisher,
		logg.Named("inventory"), cfg.LowStockThreshold)
	inventory.NewHandler(inventoryService).RegisterRoutes(router)

	// ── Cart & Orders ───────────────────────────────────────
	cartService := cart.NewService(cart.NewPostgresRepository(db), inventoryService, logg.Named("cart"))
	cart.NewHandler(cartService, guard).RegisterRoutes(router)

	orderService := order.NewService(order.NewPostgresRepository(db), cartService, inventoryService,
		publisher, logg.Named("order"), order.Options{TaxRate: cfg.TaxRate, Currency: cfg.Currency})
	order.NewHandler(orderService, guard).RegisterRoutes(router)

	// ── Start Server ─────────────────────────────────────────
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info("shopfront API server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
