package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"rentscout/config"
	"rentscout/httputil"
	"rentscout/identity"
	"rentscout/logging"
	"rentscout/scheduler"
	"rentscout/scraper"
	"rentscout/services"
	"rentscout/storage"
	"rentscout/workers"
)

var (
	scrapeNow = flag.Bool("scrape", false, "Run scrape once and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info")
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Setup(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	log.Info().Int("sites", len(cfg.Sites)).Msg("starting rentscout")
	for id, site := range cfg.Sites {
		log.Info().Str("id", id).Str("name", site.Name).Bool("enabled", site.Enabled).Msg("site configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}
	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Postgres")
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema")
	}
	log.Info().Msg("connected to Postgres")

	clients := httputil.NewClients(&cfg.Browser.Proxy)

	var blob services.BlobStore
	if cfg.Blob.Bucket != "" {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          cfg.Blob.Bucket,
			Region:          cfg.Blob.Region,
			Endpoint:        cfg.Blob.Endpoint,
			AccessKeyID:     cfg.Blob.AccessKeyID,
			SecretAccessKey: cfg.Blob.SecretAccessKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize blob storage")
		}
		blob = s3Store
		log.Info().Str("bucket", cfg.Blob.Bucket).Msg("blob storage ready")
	} else {
		log.Warn().Msg("no blob bucket configured, listing images will not be stored")
	}

	var externalizer services.Externalizer = services.NoopExternalizer{}
	if blob != nil {
		externalizer = services.NewImageService(clients.Scraping, blob, identity.RandomUserAgent())
	}
	gateway := services.NewGateway(store, externalizer)

	rotator, err := identity.NewRotator(cfg.IdentityPool())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build identity rotator")
	}

	sessions, err := scraper.NewSessionManager(&cfg.Browser)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start browser backend")
	}
	defer sessions.Stop()

	orchestrator := scraper.NewOrchestrator(cfg, sessions, rotator, gateway, store)

	if *scrapeNow {
		log.Info().Msg("running one-shot scrape")
		orchestrator.RunAll(ctx)
		log.Info().Msg("scrape complete")
		return
	}

	// Daemon mode
	sched := scheduler.New(cfg, orchestrator)

	if blob != nil {
		describer := services.NewOllamaDescriber(clients.API, cfg.Ollama.BaseURL, cfg.Ollama.Model)
		summary := workers.NewSummaryWorker(store, blob, describer)
		sched.SetWorkers(summary)
		go summary.Run(ctx, cfg.Ollama.SummaryBatch, cfg.Ollama.SummaryInterval)
	}

	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	log.Info().Msg("daemon running, waiting for signals")
	<-ctx.Done()
	log.Info().Msg("shutting down")
}
