package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// maxFetchBytes caps a single photo download at 20 MB.
const maxFetchBytes = 20 << 20

var fetchClient = &http.Client{Timeout: 15 * time.Second}

// FetchImages downloads up to max photos from the given URLs. Failures are
// logged and skipped, so the result may be shorter than requested or empty.
func FetchImages(ctx context.Context, logger *zap.Logger, urls []string, max int) [][]byte {
	var images [][]byte
	for _, u := range urls {
		if len(images) >= max {
			break
		}
		data, err := fetchImage(ctx, u)
		if err != nil {
			logger.Warn("skipping photo that failed to download",
				zap.String("url", u),
				zap.Error(err))
			continue
		}
		images = append(images, data)
	}
	return images
}

func fetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := fetchClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
}
