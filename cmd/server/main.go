package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/liamcoop/cabinetquote/internal/config"
	"github.com/liamcoop/cabinetquote/internal/logger"
	"github.com/liamcoop/cabinetquote/presets"
	"github.com/liamcoop/cabinetquote/rules"
	_ "github.com/lib/pq"
)

type Server struct {
	db           *sql.DB // nil with in-memory storage
	engine       *rules.Engine
	priceWorkers int
	router       *chi.Mux
}

// NewServer wires storage, the pricing engine and the router from cfg
func NewServer(cfg config.Config) (*Server, error) {
	var (
		db          *sql.DB
		ruleStore   rules.RuleSetStore
		presetStore presets.Store
	)

	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		ruleStore = rules.NewPostgresRuleSetStore(db)
		presetStore = presets.NewPostgresStore(db)
	} else {
		logger.Warn("DATABASE_URL is not set, using in-memory storage")
		ruleStore = rules.NewInMemoryRuleSetStore()
		presetStore = presets.NewInMemoryStore()
	}

	cache := rules.NewInMemoryRulesCache(rules.CacheConfig{TTL: cfg.RulesCacheTTL})
	engine := rules.NewEngineWithCache(ruleStore, presetStore, cache)

	if cfg.SeedDefaultRules {
		seeded, err := engine.SeedDefaults()
		if err != nil {
			return nil, fmt.Errorf("failed to seed default rules: %w", err)
		}
		if seeded {
			logger.Info("seeded default pricing rules")
		}
	}

	return newServer(db, engine, cfg.PriceWorkers), nil
}

func newServer(db *sql.DB, engine *rules.Engine, priceWorkers int) *Server {
	s := &Server{
		db:           db,
		engine:       engine,
		priceWorkers: priceWorkers,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/factors", s.handleListFactors)

		// Pricing
		r.Post("/price", s.handlePrice)
		r.Post("/quotes/price", s.handlePriceQuote)
		r.Post("/orders/adjust", s.handleAdjustOrder)
		r.Post("/receipts", s.handleCreateReceipt)

		// Rule set administration
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", s.handleListRules)
			r.Put("/", s.handleReplaceRules)
			r.Post("/", s.handleCreateRule)
			r.Post("/preview", s.handlePreviewRule)
			r.Put("/{ruleId}", s.handleUpdateRule)
			r.Delete("/{ruleId}", s.handleDeleteRule)
			r.Post("/{ruleId}/move", s.handleMoveRule)
		})

		// Preset values
		r.Get("/presets", s.handleGetPresets)
		r.Put("/presets", s.handleUpdatePresets)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}

	server, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}
	if server.db != nil {
		defer server.db.Close()
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := logger.Shutdown(ctx); err != nil {
		logger.Error("logger shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
