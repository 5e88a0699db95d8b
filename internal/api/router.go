package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mindmesh-ai/mindmesh/internal/api/handlers"
	mw "github.com/mindmesh-ai/mindmesh/internal/api/middleware"
	"github.com/mindmesh-ai/mindmesh/internal/buildconfig"
	"github.com/mindmesh-ai/mindmesh/internal/config"
	"github.com/mindmesh-ai/mindmesh/internal/domain"
	"github.com/mindmesh-ai/mindmesh/internal/embedding"
	"github.com/mindmesh-ai/mindmesh/internal/llm"
	"github.com/mindmesh-ai/mindmesh/internal/memory"
	"github.com/mindmesh-ai/mindmesh/internal/orchestrator"
	"github.com/mindmesh-ai/mindmesh/internal/reflex"
	"github.com/mindmesh-ai/mindmesh/internal/store"
	"go.uber.org/zap"
)

// App holds the router plus request counters for the metrics endpoint.
type App struct {
	Router       *chi.Mux
	Managers     *memory.Cache
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) (*App, error) {
	// Stores
	tenantStore := store.NewTenantStore(db)
	contractStore := store.NewContractStore(db)
	itemStore := store.NewMemoryItemStore(db)
	threadStore := store.NewThreadStore(db)
	goalStore := store.NewGoalStore(db)
	graphStore := store.NewBeliefGraphStore(db)
	metricStore := store.NewMetricStore(db)

	// External clients via provider factory
	llmProvider := config.LLMProvider()
	modelClient, err := llm.NewClient(llmProvider, config.LLMAPIKey())
	if err != nil {
		return nil, err
	}
	logger.Info("model client initialized", zap.String("provider", llmProvider))

	embeddingProvider := config.EmbeddingProvider()
	embeddingClient, err := embedding.NewClient(embeddingProvider, config.EmbeddingAPIKey(), config.EmbeddingModel())
	if err != nil {
		return nil, err
	}
	logger.Info("embedding client initialized", zap.String("provider", embeddingProvider))

	// Memory managers are built lazily per (tenant, agent) and bounded by an
	// LRU; the cache is the only shared mutable state.
	managerStores := memory.Stores{
		Items:   itemStore,
		Threads: threadStore,
		Goals:   goalStore,
		Graphs:  graphStore,
		Metrics: metricStore,
	}
	managers, err := memory.NewCache(config.ManagerCacheSize(), func(tenantID, agentID uuid.UUID) (*memory.Manager, error) {
		return memory.NewManager(tenantID, agentID, managerStores, embeddingClient, logger), nil
	})
	if err != nil {
		return nil, err
	}

	reflexEngine := reflex.NewEngine(metricStore, graphStore, logger)
	orch := orchestrator.New(modelClient, reflexEngine, logger)

	// Handlers
	tenantHandler := handlers.NewTenantHandler(tenantStore)
	contractHandler := handlers.NewContractHandler(contractStore)
	chatHandler := handlers.NewChatHandler(contractStore, managers, orch)
	cognitiveHandler := handlers.NewCognitiveHandler(managers)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Managers:  managers,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health and metrics (no auth)
	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	// Tenant creation (no auth, bootstrap endpoint)
	r.Post("/v1/tenants", tenantHandler.Create)

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(tenantStore))

		r.Post("/tenants/rotate-key", tenantHandler.RotateKey)

		r.Route("/contracts", func(r chi.Router) {
			r.Post("/", contractHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", contractHandler.GetByID)
				r.Put("/", contractHandler.Update)
				r.Get("/versions", contractHandler.ListVersions)
			})
		})

		r.Route("/agents/{id}", func(r chi.Router) {
			r.Post("/chat", chatHandler.Chat)
			r.Post("/flow", chatHandler.Flow)
			r.Post("/metrics", cognitiveHandler.RecordMetric)
			r.Get("/goals", cognitiveHandler.ListGoals)
		})
	})

	return app, nil
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.WriteHeader(http.StatusOK)
		body := map[string]string{"status": "ok"}
		for k, v := range buildconfig.VersionInfo() {
			body[k] = v
		}
		_ = json.NewEncoder(w).Encode(body)
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"manager_cache":  app.Managers.Len(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.TenantStore      = (*store.TenantStore)(nil)
	_ domain.ContractStore    = (*store.ContractStore)(nil)
	_ domain.MemoryItemStore  = (*store.MemoryItemStore)(nil)
	_ domain.ThreadStore      = (*store.ThreadStore)(nil)
	_ domain.GoalStore        = (*store.GoalStore)(nil)
	_ domain.BeliefGraphStore = (*store.BeliefGraphStore)(nil)
	_ domain.MetricStore      = (*store.MetricStore)(nil)
	_ domain.EmbeddingClient  = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient  = (*embedding.MockClient)(nil)
	_ domain.ModelClient      = (*llm.OpenAIClient)(nil)
	_ domain.ModelClient      = (*llm.AnthropicClient)(nil)
	_ domain.ModelClient      = (*llm.MockClient)(nil)
)
