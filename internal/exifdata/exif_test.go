package exifdata

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

// Helper functions for creating test images

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := range width {
		for y := range height {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodeJPEG(img image.Image) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

// --- ConvertToDegrees tests ---

func TestConvertToDegrees(t *testing.T) {
	tests := []struct {
		name     string
		degrees  float64
		minutes  float64
		seconds  float64
		ref      string
		expected float64
	}{
		{"north hemisphere", 48, 51, 23.76, "N", 48.8566},
		{"east hemisphere", 2, 21, 7.92, "E", 2.3522},
		{"south negates", 15, 30, 0, "S", -15.5},
		{"west negates", 15, 30, 0, "W", -15.5},
		{"no reference stays positive", 15, 30, 0, "", 15.5},
		{"whole degrees", 90, 0, 0, "N", 90},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ConvertToDegrees(tc.degrees, tc.minutes, tc.seconds, tc.ref)
			if diff := got - tc.expected; diff > 0.0001 || diff < -0.0001 {
				t.Errorf("ConvertToDegrees() = %f, want %f", got, tc.expected)
			}
		})
	}
}

// --- Extract tests ---

func TestExtract_NoExif(t *testing.T) {
	// Plain encoded JPEG without an EXIF segment.
	data := encodeJPEG(createTestImage(50, 50, color.White))

	md := Extract(data)

	if md.HasMetadata {
		t.Error("expected HasMetadata false for EXIF-less image")
	}
	if md.HasGPS {
		t.Error("expected HasGPS false")
	}
	if !md.TakenAt.IsZero() {
		t.Errorf("expected zero capture time, got %v", md.TakenAt)
	}
}

func TestExtract_CorruptData(t *testing.T) {
	md := Extract([]byte("not an image at all"))

	if md.HasMetadata {
		t.Error("expected HasMetadata false for corrupt data")
	}
}

func TestExtract_EmptyData(t *testing.T) {
	md := Extract(nil)

	if md.HasMetadata || md.HasGPS {
		t.Error("expected empty metadata for empty input")
	}
}

// --- Thumbnail tests ---

func TestThumbnail_FitsWithinBounds(t *testing.T) {
	data := encodeJPEG(createTestImage(1200, 900, color.White))

	thumb, err := Thumbnail(data)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}

	img, format, err := image.Decode(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("failed to decode thumbnail: %v", err)
	}

	if format != "jpeg" {
		t.Errorf("expected jpeg format, got %s", format)
	}

	bounds := img.Bounds()
	if bounds.Dx() > 300 || bounds.Dy() > 300 {
		t.Errorf("expected max dimension 300, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	// 4:3 ratio preserved
	if bounds.Dx() != 300 || bounds.Dy() != 225 {
		t.Errorf("expected 300x225, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestThumbnail_SmallImageNotUpscaled(t *testing.T) {
	data := encodeJPEG(createTestImage(100, 80, color.White))

	thumb, err := Thumbnail(data)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("failed to decode thumbnail: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 100 || bounds.Dy() != 80 {
		t.Errorf("expected 100x80, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestThumbnail_InvalidData(t *testing.T) {
	if _, err := Thumbnail([]byte("garbage")); err == nil {
		t.Error("expected error for invalid image data")
	}
}
