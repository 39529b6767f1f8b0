package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tripweaver/internal/ai"
	"tripweaver/internal/config"
	"tripweaver/internal/geocode"
	"tripweaver/internal/itinerary"
	"tripweaver/internal/storage"
	"tripweaver/internal/uploads"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory]",
	Short: "Run a directory of photos through the upload pipeline",
	Long: `Read all photos from a directory, extract their metadata and store
originals and thumbnails in the configured storage root. With --itinerary
the ingested photos are also assembled into an itinerary printed as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().String("owner", "cli", "Owner id to store photos under")
	ingestCmd.Flags().Int("workers", uploads.DefaultWorkers, "Number of concurrent photo workers")
	ingestCmd.Flags().Bool("itinerary", false, "Generate an itinerary from the ingested photos")
}

// readPhotoDir loads every image file from a directory.
func readPhotoDir(dir string) ([]uploads.Payload, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var payloads []uploads.Payload
	bar := progressbar.Default(int64(len(entries)), "reading photos")
	for _, entry := range entries {
		bar.Add(1)
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png", ".bmp":
		default:
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			fmt.Printf("Warning: skipping %s: %v\n", entry.Name(), err)
			continue
		}
		payloads = append(payloads, uploads.Payload{
			Filename: entry.Name(),
			Data:     data,
		})
	}
	return payloads, nil
}

// localFetcher serves image bytes straight from the blob store instead of
// going through HTTP, so ingest works without a running server.
func localFetcher(store *storage.LocalBlobStore, publicBaseURL string) func(ctx context.Context, urls []string, max int) [][]byte {
	prefix := strings.TrimSuffix(publicBaseURL, "/") + "/"
	return func(ctx context.Context, urls []string, max int) [][]byte {
		var images [][]byte
		for _, u := range urls {
			if len(images) >= max {
				break
			}
			rel := strings.TrimPrefix(u, prefix)
			data, err := os.ReadFile(filepath.Join(store.Root(), filepath.FromSlash(rel)))
			if err != nil {
				continue
			}
			images = append(images, data)
		}
		return images
	}
}

func generateIngestItinerary(ctx context.Context, cfg *config.Config, logger *zap.Logger, store *storage.LocalBlobStore, results []uploads.Result) error {
	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}

	oracle := ai.NewOracle(provider, logger)

	var geocodeOpts []geocode.Option
	if cfg.Geocode.BaseURL != "" {
		geocodeOpts = append(geocodeOpts, geocode.WithBaseURL(cfg.Geocode.BaseURL))
	}
	namer := geocode.NewClient(logger, geocodeOpts...)

	generator := itinerary.NewGenerator(namer, oracle, logger,
		itinerary.WithClusterThreshold(cfg.Pipeline.ClusterThresholdKM),
		itinerary.WithTemporalGap(cfg.Pipeline.TemporalGap),
		itinerary.WithImageFetcher(localFetcher(store, cfg.Storage.PublicBaseURL)),
	)

	inputs := make([]itinerary.PhotoInput, 0, len(results))
	for _, r := range results {
		input := itinerary.PhotoInput{
			ID:         r.ID,
			ImageURL:   r.ImageURL,
			Coordinate: r.Coordinate,
		}
		if r.CaptureDate != nil {
			input.TakenAt = *r.CaptureDate
		}
		inputs = append(inputs, input)
	}

	result, err := generator.Generate(ctx, inputs)
	if err != nil {
		return fmt.Errorf("generating itinerary: %w", err)
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding itinerary: %w", err)
	}
	fmt.Println(string(encoded))

	if usage := provider.GetUsage(); usage != nil {
		fmt.Printf("Tokens: %d in / %d out (cost $%.4f)\n",
			usage.InputTokens, usage.OutputTokens, usage.TotalCost)
	}
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	payloads, err := readPhotoDir(args[0])
	if err != nil {
		return err
	}
	if len(payloads) == 0 {
		return fmt.Errorf("no photos found in %s", args[0])
	}

	store, err := storage.NewLocalBlobStore(cfg.Storage.Root, cfg.Storage.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("preparing storage: %w", err)
	}

	coordinator := uploads.NewCoordinator(store, logger,
		uploads.WithWorkers(mustGetInt(cmd, "workers")),
		uploads.WithPhotoTimeout(cfg.Pipeline.PhotoTimeout),
	)

	ctx := context.Background()
	results := coordinator.Process(ctx, mustGetString(cmd, "owner"), payloads)
	fmt.Printf("Processed %d of %d photos\n", len(results), len(payloads))
	if len(results) == 0 {
		return fmt.Errorf("no photos could be processed")
	}

	if mustGetBool(cmd, "itinerary") {
		return generateIngestItinerary(ctx, cfg, logger, store, results)
	}

	encoded, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	fmt.Println(string(encoded))
	return nil
}
