package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tjfontaine/sui-agent/internal/agent"
	"github.com/tjfontaine/sui-agent/internal/api/openai"
	"github.com/tjfontaine/sui-agent/internal/auth"
	"github.com/tjfontaine/sui-agent/internal/blob"
	"github.com/tjfontaine/sui-agent/internal/config"
	"github.com/tjfontaine/sui-agent/internal/contacts"
	"github.com/tjfontaine/sui-agent/internal/httpclient"
	"github.com/tjfontaine/sui-agent/internal/intent"
	"github.com/tjfontaine/sui-agent/internal/ledger"
	"github.com/tjfontaine/sui-agent/internal/seal"
	"github.com/tjfontaine/sui-agent/internal/server"
	"github.com/tjfontaine/sui-agent/internal/storage"
	"github.com/tjfontaine/sui-agent/internal/storage/memory"
	"github.com/tjfontaine/sui-agent/internal/storage/sqlite"
	"github.com/tjfontaine/sui-agent/internal/telemetry"
	"github.com/tjfontaine/sui-agent/internal/tokens"
)

var version = "dev"

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(telemetry.Options{
			ServiceName: "sui-agent",
			Version:     version,
			Network:     cfg.Sui.Network,
			Writer:      os.Stderr,
			PrettyPrint: cfg.Telemetry.PrettyPrint,
		}, logger)
		if err != nil {
			log.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, closeIndex, err := build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer closeIndex()

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server stopped", slog.String("error", err.Error()))
			cancel()
		}
	}()

	logger.Info("sui-agent started",
		slog.String("version", version),
		slog.String("network", cfg.Sui.Network),
		slog.String("blob_backend", cfg.Blob.Backend),
		slog.String("storage", cfg.Storage.Type),
		slog.Bool("auth", len(cfg.Server.APIKeys) > 0),
	)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	logger.Info("Shutdown signal received, stopping server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

// build wires every component from cfg. The returned func closes the
// contact index.
func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*server.Server, func(), error) {
	deriver, err := seal.NewDeriver(seal.Config{
		Secret:       cfg.Seal.Secret,
		Salt:         cfg.Seal.Salt,
		Iterations:   cfg.Seal.Iterations,
		RequireProof: cfg.Seal.RequireProof,
	})
	if err != nil {
		return nil, nil, err
	}

	httpClient := func(timeout time.Duration) *http.Client {
		return httpclient.New(httpclient.Options{Timeout: timeout, DenyPrivate: cfg.Server.DenyPrivateEgress})
	}

	blobs, err := newBlobStore(ctx, cfg.Blob, httpClient(30*time.Second))
	if err != nil {
		return nil, nil, err
	}
	index, err := newContactIndex(cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	closeIndex := func() {
		if err := index.Close(); err != nil {
			logger.Error("failed to close contact index", slog.String("error", err.Error()))
		}
	}
	book := contacts.NewBook(seal.NewSealer(deriver), blobs, index, logger)

	registry, err := intent.NewRegistry()
	if err != nil {
		closeIndex()
		return nil, nil, err
	}
	llm := openai.NewClient(cfg.OpenAI.APIKey,
		openai.WithBaseURL(cfg.OpenAI.BaseURL),
		openai.WithHTTPClient(httpClient(cfg.OpenAI.Timeout)),
	)
	resolver := intent.NewResolver(llm, registry,
		intent.WithModel(cfg.OpenAI.Model),
		intent.WithLogger(logger),
		intent.WithTokenLimit(tokens.NewRegistry(), cfg.OpenAI.MaxMessageTokens),
	)

	chain := ledger.NewClient(ledger.Config{
		RPCURL:       cfg.Sui.RPCURL,
		USDCCoinType: cfg.Sui.USDCCoinType,
		GasUnits:     cfg.Sui.GasUnits,
		GasBudget:    cfg.Sui.GasBudget,
		HTTPClient:   httpClient(15 * time.Second),
	})

	a := agent.New(resolver,
		agent.WithLedger(chain),
		agent.WithAddressBook(book),
		agent.WithAddressBookTarget(cfg.Sui.AddressBookTarget),
		agent.WithLogger(logger),
	)

	var authenticator *auth.Authenticator
	if len(cfg.Server.APIKeys) > 0 {
		keys := make([]auth.Key, len(cfg.Server.APIKeys))
		for i, k := range cfg.Server.APIKeys {
			keys[i] = auth.Key{Hash: k.KeyHash, Description: k.Description}
		}
		authenticator = auth.NewAuthenticator(keys)
	}

	srv := server.New(server.Config{
		Port:           cfg.Server.Port,
		RequestTimeout: cfg.Server.RequestTimeout,
		Logger:         logger,
		Authenticator:  authenticator,
		Agent:          a,
		AddressBook:    book,
	})
	return srv, closeIndex, nil
}

func newBlobStore(ctx context.Context, cfg config.BlobConfig, client *http.Client) (blob.Store, error) {
	switch cfg.Backend {
	case "walrus":
		return blob.NewWalrus(blob.WalrusConfig{
			PublisherURL:  cfg.Walrus.PublisherURL,
			AggregatorURL: cfg.Walrus.AggregatorURL,
			Epochs:        cfg.Walrus.Epochs,
			HTTPClient:    client,
		})
	case "s3":
		return blob.NewS3(ctx, blob.S3Config{
			Bucket:   cfg.S3.Bucket,
			Region:   cfg.S3.Region,
			Endpoint: cfg.S3.Endpoint,
			Prefix:   cfg.S3.Prefix,
		})
	case "memory":
		return blob.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
}

func newContactIndex(cfg config.StorageConfig) (storage.ContactIndex, error) {
	switch cfg.Type {
	case "sqlite":
		return sqlite.New(cfg.SQLite.Path)
	case "memory":
		return memory.New(), nil
	}
	return nil, errors.New("unknown storage type " + cfg.Type)
}
