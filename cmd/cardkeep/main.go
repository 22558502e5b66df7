package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/cardkeep/cardkeep/internal/api"
	"github.com/cardkeep/cardkeep/internal/cache"
	"github.com/cardkeep/cardkeep/internal/catalog"
	"github.com/cardkeep/cardkeep/internal/collection"
	"github.com/cardkeep/cardkeep/internal/config"
	"github.com/cardkeep/cardkeep/internal/database"
	"github.com/cardkeep/cardkeep/internal/export"
	"github.com/cardkeep/cardkeep/internal/images"
	"github.com/cardkeep/cardkeep/internal/ingest"
	"github.com/cardkeep/cardkeep/internal/mirror"
	"github.com/cardkeep/cardkeep/internal/pricing"
	"github.com/cardkeep/cardkeep/internal/sealedapi"
	"github.com/cardkeep/cardkeep/internal/search"
	"github.com/cardkeep/cardkeep/internal/snapshot"
	"github.com/cardkeep/cardkeep/internal/tcgapi"
	"github.com/cardkeep/cardkeep/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "cardkeep",
		Usage: "trading card collection tracker",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API with background sync and snapshot workers",
				Action: runServe,
			},
			{
				Name:      "sync",
				Usage:     "trigger one sync job (catalog, pricing or csv) and exit",
				ArgsUsage: "<job>",
				Action:    runSync,
			},
			{
				Name:  "export",
				Usage: "value the collection and write a report",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "out",
						Usage: "write an XLSX report to `PATH` instead of Google Sheets",
					},
				},
				Action: runExport,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// services is the wired dependency graph shared by the subcommands.
type services struct {
	pool *pgxpool.Pool
	cfg  config.Config

	catalogRepo *catalog.PgRepository
	pricingSvc  *pricing.Service
	searchSvc   *search.Service
	imageFinder *images.Finder
	collection  *collection.Service
	snapshots   *snapshot.Service

	catalogSync *ingest.CatalogSync
	pricingSync *ingest.PricingSync
	csvSync     *ingest.CSVSync
}

func (s *services) Close() {
	s.pool.Close()
}

func buildServices(ctx context.Context) (*services, error) {
	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	migrationsSub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create migrations sub-fs: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Upstream clients
	cardAPI := tcgapi.NewClient(cfg.CardAPIURL, cfg.CardAPIKey, cfg.CardAPITeamID, cfg.RetryMax, cfg.FetchTimeout)
	sealedAPI := sealedapi.NewClient(cfg.SealedAPIURL, cfg.SealedAPIKey, cfg.RetryMax, cfg.FetchTimeout)
	mirrorAPI := mirror.NewClient(cfg.MirrorAPIURL, cfg.RetryMax, cfg.FetchTimeout)

	// Storage
	catalogRepo := catalog.NewPgRepository(pool)
	collectionRepo := collection.NewPgRepository(pool)
	snapshotRepo := snapshot.NewPgRepository(pool)
	statusRepo := ingest.NewPgStatusRepository(pool)

	store := cache.New()

	// Pricing: cache -> database -> rate-limited upstream
	fetcher := pricing.NewFetcher(cardAPI, catalogRepo, cfg.FetchDelay)
	pricingSvc := pricing.NewService(catalogRepo, fetcher, store, cfg.StaleThreshold, cfg.BatchConcurrency)

	// Search: classifier routes between the database and the sealed provider
	searchSvc := search.NewService(catalogRepo, sealedAPI, search.DefaultClassifier(), store)

	imageFinder := images.NewFinder(cfg.ImageAPIURL, cfg.ImageAPIKey, store)

	// Collection valuation and snapshots
	collectionSvc := collection.NewService(collectionRepo, catalogRepo, pricingSvc)
	snapshotSvc := snapshot.NewService(collectionSvc, snapshotRepo)

	// Sync jobs
	catalogSync := ingest.NewCatalogSync(cardAPI, catalogRepo, statusRepo, cfg.CatalogSyncMaxAge)
	pricingSync := ingest.NewPricingSync(catalogRepo, fetcher, statusRepo, cfg.PricingSyncMaxAge, 200)
	csvSync := ingest.NewCSVSync(mirrorAPI, catalogRepo, statusRepo, cfg.CSVSyncMaxAge)

	return &services{
		pool:        pool,
		cfg:         cfg,
		catalogRepo: catalogRepo,
		pricingSvc:  pricingSvc,
		searchSvc:   searchSvc,
		imageFinder: imageFinder,
		collection:  collectionSvc,
		snapshots:   snapshotSvc,
		catalogSync: catalogSync,
		pricingSync: pricingSync,
		csvSync:     csvSync,
	}, nil
}

// exportWriter picks the report destination: an XLSX file when outPath is
// set, Google Sheets when credentials are configured, nothing otherwise.
func exportWriter(ctx context.Context, cfg config.Config, outPath string) (export.Writer, error) {
	if outPath != "" {
		return export.NewXLSXWriter(outPath), nil
	}
	if cfg.SheetsSpreadsheetID != "" && cfg.SheetsCredentials != "" {
		return export.NewSheetsWriter(ctx, cfg.SheetsSpreadsheetID, cfg.SheetsCredentials)
	}
	return nil, nil
}

func runServe(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := buildServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	// Start workers
	syncWorker := worker.NewSyncWorker(svc.cfg.SyncWorkerInterval, svc.catalogSync, svc.csvSync, svc.pricingSync)
	go syncWorker.Run(ctx)

	var hook worker.AfterSnapshotHook
	writer, err := exportWriter(ctx, svc.cfg, "")
	if err != nil {
		return fmt.Errorf("failed to configure sheets export: %w", err)
	}
	if writer != nil {
		hook = export.NewService(writer)
	}
	snapshotWorker := worker.NewSnapshotWorker(svc.snapshots, svc.cfg.SnapshotWorkerInterval, hook)
	go snapshotWorker.Run(ctx)

	if svc.cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, admin endpoints are unprotected")
	}

	// Start HTTP server
	h := api.NewHandler(
		svc.searchSvc,
		svc.pricingSvc,
		svc.catalogRepo,
		svc.imageFinder,
		svc.collection,
		svc.snapshots,
		svc.catalogSync, svc.pricingSync, svc.csvSync,
	)
	srv := api.NewServer(svc.cfg.HTTPPort, h, svc.cfg.AdminAPIKey)

	go func() {
		log.Printf("HTTP server listening on :%s", svc.cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}

func runSync(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := buildServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	jobs := map[string]ingest.Job{
		svc.catalogSync.Name(): svc.catalogSync,
		svc.pricingSync.Name(): svc.pricingSync,
		svc.csvSync.Name():     svc.csvSync,
	}

	name := c.Args().First()
	job, ok := jobs[name]
	if !ok {
		return fmt.Errorf("unknown sync job %q (want catalog, pricing or csv)", name)
	}

	log.Printf("Running %s sync...", name)
	if err := job.Trigger(ctx); err != nil {
		return fmt.Errorf("%s sync failed: %w", name, err)
	}
	if status, err := job.Stats(ctx); err == nil && status != nil {
		log.Printf("%s sync complete: %d items", name, status.ItemsSynced)
	} else {
		log.Printf("%s sync complete", name)
	}
	return nil
}

func runExport(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := buildServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	writer, err := exportWriter(ctx, svc.cfg, c.String("out"))
	if err != nil {
		return fmt.Errorf("failed to configure export: %w", err)
	}
	if writer == nil {
		return fmt.Errorf("no export destination: pass --out or set SHEETS_SPREADSHEET_ID and SHEETS_CREDENTIALS_JSON")
	}

	valuation, err := svc.collection.Value(ctx)
	if err != nil {
		return fmt.Errorf("failed to value collection: %w", err)
	}

	if err := export.NewService(writer).Export(ctx, valuation); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	log.Printf("Exported %d holdings", len(valuation.Lines))
	return nil
}
