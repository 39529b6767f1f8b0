package exifdata

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

const (
	thumbnailSize    = 300
	thumbnailQuality = 85
)

// Thumbnail produces a JPEG thumbnail fitting within 300x300 pixels,
// honoring the EXIF orientation flag of the source image.
func Thumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := imaging.Fit(img, thumbnailSize, thumbnailSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(thumbnailQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return buf.Bytes(), nil
}
