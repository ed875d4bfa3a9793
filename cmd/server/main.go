package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"dataset-registry/api/rest/routes"
	"dataset-registry/config"
	"dataset-registry/core/bounty"
	"dataset-registry/core/generator"
	"dataset-registry/core/history"
	"dataset-registry/core/pipeline"
	"dataset-registry/providers/arweave"
	"dataset-registry/providers/ethereum/registry"
	"dataset-registry/providers/openai"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	log := logrus.WithField("component", "server")

	ctx := context.Background()

	// Initialize the history ledger
	var ledger history.Ledger
	switch cfg.HistoryDriver {
	case "postgres":
		ledger, err = history.OpenPostgres(cfg.HistoryDSN)
	default:
		ledger, err = history.OpenFile(cfg.HistoryFile)
	}
	if err != nil {
		log.Fatalf("Failed to open history ledger: %v", err)
	}
	defer ledger.Close()
	log.Infof("History ledger ready (driver=%s)", cfg.HistoryDriver)

	// Initialize providers
	completer := openai.NewClient(cfg.OpenAIKey, cfg.OpenAIModel)

	publisher, err := arweave.NewPublisher(cfg.ArweaveWalletPath, cfg.ArweaveGateway)
	if err != nil {
		log.Fatalf("Failed to initialize storage publisher: %v", err)
	}

	reg, err := registry.Dial(ctx, cfg.RPCEndpoint, cfg.ContractAddress, cfg.PrivateKey)
	if err != nil {
		log.Fatalf("Failed to connect to registry contract: %v", err)
	}
	defer reg.Close()
	log.Infof("Registry contract connected (signer=%s)", reg.Signer().Hex())

	// Initialize the pipeline and the bounty manager
	orchestrator := generator.New(completer)
	pipe := pipeline.NewService(orchestrator, publisher, reg, ledger, cfg.MarketplaceProbeLimit)
	bountyManager := bounty.NewManager(reg)

	// Setup routes
	r := mux.NewRouter()
	routes.SetupRoutes(r, pipe, bountyManager)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Start server
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		log.Infof("Starting server on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	if err := server.Shutdown(context.Background()); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Info("Server exited")
}
