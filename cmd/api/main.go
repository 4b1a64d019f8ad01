package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/reqanalyzer/internal/application"
	appanalysis "github.com/bryanwahyu/reqanalyzer/internal/application/analysis"
	"github.com/bryanwahyu/reqanalyzer/internal/config"
	domai "github.com/bryanwahyu/reqanalyzer/internal/domain/ai"
	domain "github.com/bryanwahyu/reqanalyzer/internal/domain/analysis"
	"github.com/bryanwahyu/reqanalyzer/internal/domain/faults"
	openaicli "github.com/bryanwahyu/reqanalyzer/internal/infra/ai/openai"
	"github.com/bryanwahyu/reqanalyzer/internal/infra/ai/ragspace"
	"github.com/bryanwahyu/reqanalyzer/internal/infra/cache"
	mysqlp "github.com/bryanwahyu/reqanalyzer/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/reqanalyzer/internal/infra/db/postgres"
	"github.com/bryanwahyu/reqanalyzer/internal/infra/health"
	"github.com/bryanwahyu/reqanalyzer/internal/infra/httpserver"
	"github.com/bryanwahyu/reqanalyzer/internal/infra/ragtracker"
	minioStore "github.com/bryanwahyu/reqanalyzer/internal/infra/storage"
	"github.com/bryanwahyu/reqanalyzer/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// connect database (requirement source + analysis audit trail)
	var (
		db           *sql.DB
		requirements domain.RequirementSource
		analyses     domain.Repository
		faultRepo    faults.Repository
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		requirements = postgresp.NewRequirementRepository(db)
		analyses = postgresp.NewAnalysisRepository(db)
		faultRepo = postgresp.NewFaultRepository(db)
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		requirements = mysqlp.NewRequirementRepository(db)
		analyses = mysqlp.NewAnalysisRepository(db)
		faultRepo = mysqlp.NewFaultRepository(db)
	}
	defer db.Close()

	// init minio reference-document source
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.Prefix,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		log.Fatalf("minio init error: %v", err)
	}

	// init backends; chat source attributions feed the document-usage stats
	ragClient := ragspace.NewClient(cfg.RAG.BaseURL, cfg.RAG.APIKey, cfg.GenerateTimeout())
	tracker := ragtracker.NewTracker(ragClient, store, cfg.RAG.Params)
	ragGen := ragspace.NewGenerator(ragClient, cfg.RAG.Workspace, tracker.TrackDocumentUsage)
	directGen := openaicli.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)

	// init health monitor
	monitor := health.NewMonitor(map[string]domai.Generator{
		appanalysis.BackendRAG:    ragGen,
		appanalysis.BackendDirect: directGen,
	})
	monitor.Subscribe(func(s health.BackendState) {
		log.Printf("backend %s -> %s (%s)", s.ID, s.State, s.LastError)
	})

	// init cache
	resultCache := cache.NewLRU(cfg.Analysis.CacheCapacity)

	// init service
	svc := &appanalysis.Service{
		Cache:           resultCache,
		Tracker:         tracker,
		Health:          monitor,
		Repo:            analyses,
		Faults:          faultRepo,
		Clock:           application.SystemClock{},
		WorkspaceID:     cfg.RAG.Workspace,
		GenOpts:         domai.GenerateOptions{Temperature: cfg.RAG.Params.Temperature},
		GenerateTimeout: cfg.GenerateTimeout(),
		FallbackCeiling: cfg.FallbackCeiling(),
	}

	// init router
	mux := chi.NewRouter()
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	if len(cfg.APIKeys) > 0 {
		mux.Use(middleware.APIKeyAuth(cfg.APIKeys))
	}
	mux.Use(middleware.RateLimitMiddleware(10, 1))
	mux.Get("/metrics", middleware.MetricsHandler)
	mux.Get("/health/details", middleware.HealthHandler(map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
		"rag":      &middleware.BackendHealthChecker{Generator: ragGen},
		"direct":   &middleware.BackendHealthChecker{Generator: directGen},
	}))
	mux.Mount("/", httpserver.NewRouter(svc, requirements, analyses, faultRepo, tracker, monitor, resultCache))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout: 15 * time.Second,
		// Analyze is synchronous and the fallback path may run long; the
		// write deadline has to outlive it.
		WriteTimeout: cfg.FallbackCeiling() + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
