// Command server runs the docproof HTTP service: the document-verification
// workflow engine and the ledger anchoring gateway behind one router.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "docproof/internal/http"
	"docproof/internal/platform/config"
	"docproof/internal/platform/httpserver"
	"docproof/internal/platform/logger"
	platformmetrics "docproof/internal/platform/metrics"
	"docproof/internal/platform/postgres"
	"docproof/internal/platform/redis"
	"docproof/internal/stellar"
	stellarcache "docproof/internal/stellar/cache"
	stellarhandler "docproof/internal/stellar/handler"
	"docproof/internal/stellar/horizon"
	stellarmetrics "docproof/internal/stellar/metrics"
	"docproof/internal/stellar/models"
	"docproof/internal/stellar/secrets"
	stellarstore "docproof/internal/stellar/store"
	"docproof/internal/workflow"
	"docproof/internal/workflow/events"
	workflowhandler "docproof/internal/workflow/handler"
	workflowmetrics "docproof/internal/workflow/metrics"
	workflowstore "docproof/internal/workflow/store"
	"docproof/pkg/platform/circuit"
)

func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: postgres when reachable, in-memory otherwise so the service
	// still runs in local development without a database.
	var (
		wfStore     workflow.Store
		ledgerStore stellar.Store
	)
	healthChecks := map[string]httpapi.HealthCheck{}

	db, err := postgres.Open(ctx, cfg.DB)
	if err != nil {
		log.Warn("database unavailable, using in-memory stores", "error", err)
		wfStore = workflowstore.NewMemory()
		ledgerStore = stellarstore.NewMemory()
	} else {
		defer db.Close()
		wfStore = workflowstore.NewPostgres(db)
		ledgerStore = stellarstore.NewPostgres(db)
		healthChecks["database"] = db.PingContext
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	var verificationCache stellarcache.VerificationCache
	if redisClient != nil {
		defer redisClient.Close()
		verificationCache = stellarcache.NewRedis(redisClient.Client, cfg.Redis.VerificationTTL)
		healthChecks["redis"] = redisClient.Health
	}

	var publisher events.Publisher
	if len(cfg.Events.Brokers) > 0 {
		kafka, err := events.NewKafka(cfg.Events.Brokers, cfg.Events.Topic, log)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer kafka.Close()
		publisher = kafka
	}

	sealer, err := secrets.New(cfg.Stellar.SecretEncryptionKey)
	if err != nil {
		log.Error("invalid secret encryption key", "error", err)
		os.Exit(1)
	}

	horizons := map[models.Network]horizon.API{
		models.NetworkTestnet: horizon.NewClient(cfg.Stellar.Testnet.HorizonURL),
		models.NetworkMainnet: horizon.NewClient(cfg.Stellar.Mainnet.HorizonURL),
	}
	passphrases := map[models.Network]string{
		models.NetworkTestnet: cfg.Stellar.Testnet.NetworkPassphrase,
		models.NetworkMainnet: cfg.Stellar.Mainnet.NetworkPassphrase,
	}
	healthChecks["horizon"] = func(context.Context) error {
		_, err := horizons[models.NetworkTestnet].Root()
		return err
	}

	anchorMetrics := stellarmetrics.New()
	gateway, err := stellar.New(ledgerStore, horizons, passphrases, sealer,
		stellar.WithLogger(log),
		stellar.WithCache(verificationCache),
		stellar.WithMetrics(anchorMetrics),
		stellar.WithBreaker(circuit.New("horizon")),
		stellar.WithFees(cfg.Stellar.BaseFee, cfg.Stellar.MaxFee),
		stellar.WithTxTimeout(cfg.Stellar.TxTimeout),
		stellar.WithRetry(cfg.Stellar.RetryAttempts, cfg.Stellar.RetryDelay),
	)
	if err != nil {
		log.Error("gateway setup failed", "error", err)
		os.Exit(1)
	}

	poller, err := stellar.NewPoller(ledgerStore, horizons,
		stellar.WithPollInterval(cfg.Stellar.PollInterval),
		stellar.WithConfirmationTimeout(cfg.Stellar.ConfirmationTimeout),
		stellar.WithPollerLogger(log),
		stellar.WithPollerMetrics(anchorMetrics),
	)
	if err != nil {
		log.Error("poller setup failed", "error", err)
		os.Exit(1)
	}

	engine, err := workflow.New(wfStore,
		workflow.WithLogger(log),
		workflow.WithPublisher(publisher),
		workflow.WithMetrics(workflowmetrics.New()),
		workflow.WithRiskRejectThreshold(cfg.Risk.RejectThreshold),
	)
	if err != nil {
		log.Error("workflow engine setup failed", "error", err)
		os.Exit(1)
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:      log,
		HTTPMetrics: platformmetrics.NewHTTP(),
		Handlers: []httpapi.Registrar{
			workflowhandler.New(engine, log),
			stellarhandler.New(gateway, poller, log),
		},
		HealthChecks: healthChecks,
	})

	srv := httpserver.New(cfg.Server.Addr, router)
	go func() {
		log.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
