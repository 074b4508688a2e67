package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inkwell-studio/artwork-pipeline/internal/application"
	appartwork "github.com/inkwell-studio/artwork-pipeline/internal/application/artwork"
	"github.com/inkwell-studio/artwork-pipeline/internal/config"
	domain "github.com/inkwell-studio/artwork-pipeline/internal/domain/artwork"
	mysqlp "github.com/inkwell-studio/artwork-pipeline/internal/infra/db/mysql"
	postgresp "github.com/inkwell-studio/artwork-pipeline/internal/infra/db/postgres"
	"github.com/inkwell-studio/artwork-pipeline/internal/infra/httpserver"
	minioStore "github.com/inkwell-studio/artwork-pipeline/internal/infra/storage"
	visionai "github.com/inkwell-studio/artwork-pipeline/internal/infra/vision/openai"
	"github.com/inkwell-studio/artwork-pipeline/internal/middleware"
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

	// connect MySQL
	db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
	if err != nil {
		log.Fatalf("mysql connect error: %v", err)
	}
	defer db.Close()

	itemRepo := mysqlp.NewItemRepository(db)
	batchRepo := mysqlp.NewBatchRepository(db)

	// legacy Postgres, optional
	var legacyRepo domain.ItemRepository
	health := map[string]middleware.HealthChecker{
		"mysql": &middleware.DatabaseHealthChecker{DB: db},
	}
	if cfg.Legacy.Enabled {
		pg, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		defer pg.Close()
		legacyRepo = postgresp.NewItemRepository(pg)
		health["postgres"] = &middleware.DatabaseHealthChecker{DB: pg}
	}

	// init minio
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		log.Fatalf("minio init error: %v", err)
	}
	health["minio"] = &middleware.PingHealthChecker{Target: store}

	// init vision client; api key kosong = analysis mati, upload tetap jalan
	analyzer := visionai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL, cfg.Pipeline.CallTimeout)

	// wiring service
	persister := &appartwork.Persister{Primary: itemRepo, Fallback: legacyRepo}
	search := appartwork.NewSearchService(batchRepo, itemRepo, legacyRepo, cfg.Pipeline.SearchCacheTTL)
	reconciler := &appartwork.Reconciler{Batches: batchRepo, Primary: itemRepo, Legacy: legacyRepo}
	tasks := appartwork.NewRegistry()
	clock := application.SystemClock{}

	uploads := &appartwork.UploadService{
		Items:     itemRepo,
		Batches:   batchRepo,
		Blobs:     store,
		Clock:     clock,
		Search:    search,
		GroupSize: cfg.Pipeline.UploadConcurrency,
		Registry:  tasks,
	}
	analyses := &appartwork.AnalysisService{
		Vision:    analyzer,
		Persister: persister,
		Search:    search,
		GroupSize: cfg.Pipeline.AnalyzeConcurrency,
		Registry:  tasks,
	}
	catalog := &appartwork.CatalogService{
		Batches:    batchRepo,
		Primary:    itemRepo,
		Legacy:     legacyRepo,
		Blobs:      store,
		Reconciler: reconciler,
		Search:     search,
		Persister:  persister,
		Clock:      clock,
	}

	mux := httpserver.NewRouter(httpserver.Deps{
		Uploads:        uploads,
		Analyses:       analyses,
		Catalog:        catalog,
		Search:         search,
		Reconciler:     reconciler,
		Tasks:          tasks,
		MaxUploadBytes: cfg.Pipeline.MaxUploadBytes,
		Health:         health,
		AdminKey:       cfg.Server.AdminKey,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  120 * time.Second, // upload multipart bisa gede
		WriteTimeout: 120 * time.Second,
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
