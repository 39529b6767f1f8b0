package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tripweaver/internal/ai"
	"tripweaver/internal/config"
	"tripweaver/internal/geocode"
	"tripweaver/internal/itinerary"
	"tripweaver/internal/storage"
	"tripweaver/internal/storage/postgres"
	"tripweaver/internal/uploads"
	"tripweaver/internal/web"
	"tripweaver/internal/web/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Tripweaver web server.
The server accepts photo uploads, reconstructs itineraries from photo
metadata and exposes the generative journal endpoints.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (overrides SERVER_ADDR)")
}

// newProvider picks the AI backend from the configured credentials.
func newProvider(ctx context.Context, cfg *config.Config) (ai.Provider, error) {
	switch cfg.Provider() {
	case "gemini":
		pricing := cfg.GetModelPricing(ai.GeminiModel)
		return ai.NewGeminiProvider(ctx, cfg.Gemini.APIKey, ai.RequestPricing{
			Input:  pricing.Input,
			Output: pricing.Output,
		})
	case "openai":
		pricing := cfg.GetModelPricing(string(ai.OpenAIModel))
		return ai.NewOpenAIProvider(cfg.OpenAI.Token, ai.RequestPricing{
			Input:  pricing.Input,
			Output: pricing.Output,
		}), nil
	}
	return nil, errors.New("no AI provider configured, set GEMINI_API_KEY or OPENAI_TOKEN")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if addr := mustGetString(cmd, "addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	defer pool.Close()

	ctx := context.Background()
	if err := pool.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	repo := postgres.NewVacationRepository(pool)

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("AI provider ready", zap.String("provider", provider.Name()))

	oracle := ai.NewOracle(provider, logger)

	var geocodeOpts []geocode.Option
	if cfg.Geocode.BaseURL != "" {
		geocodeOpts = append(geocodeOpts, geocode.WithBaseURL(cfg.Geocode.BaseURL))
	}
	namer := geocode.NewClient(logger, geocodeOpts...)

	generator := itinerary.NewGenerator(namer, oracle, logger,
		itinerary.WithClusterThreshold(cfg.Pipeline.ClusterThresholdKM),
		itinerary.WithTemporalGap(cfg.Pipeline.TemporalGap),
	)

	store, err := storage.NewLocalBlobStore(cfg.Storage.Root, cfg.Storage.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("preparing storage: %w", err)
	}

	coordinator := uploads.NewCoordinator(store, logger,
		uploads.WithWorkers(cfg.Pipeline.UploadWorkers),
		uploads.WithPhotoTimeout(cfg.Pipeline.PhotoTimeout),
	)

	server := web.NewServer(cfg, web.Handlers{
		Photos: handlers.NewPhotosHandler(coordinator, repo, logger),
		AI:     handlers.NewAIHandler(generator, oracle, repo, logger),
	}, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during shutdown", zap.Error(err))
		}
	}()

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
