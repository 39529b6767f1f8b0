// Package exifdata extracts capture metadata from photo files. Extraction is
// best effort: files without usable EXIF still pass through the pipeline, they
// just carry no coordinate or capture time.
package exifdata

import (
	"bytes"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"tripweaver/internal/geo"
)

// exifTimeLayout is the timestamp format EXIF writers use. Capture times
// carry no zone information, so they are interpreted as UTC.
const exifTimeLayout = "2006:01:02 15:04:05"

// Metadata is the result of extracting EXIF data from one photo. Coordinate
// is meaningful only when HasGPS is set, TakenAt is the zero time when the
// capture time is unknown.
type Metadata struct {
	Coordinate  geo.Coordinate
	TakenAt     time.Time
	CameraMake  string
	CameraModel string
	HasGPS      bool
	HasMetadata bool
}

// Extract reads EXIF metadata from raw image bytes. It never fails: corrupt
// or EXIF-less files yield a Metadata with HasMetadata false.
func Extract(data []byte) Metadata {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return Metadata{}
	}

	md := Metadata{HasMetadata: true}

	if coord, ok := extractCoordinate(x); ok && coord.Valid() {
		md.Coordinate = coord
		md.HasGPS = true
	}
	md.TakenAt = extractTimestamp(x)
	md.CameraMake = stringField(x, exif.Make)
	md.CameraModel = stringField(x, exif.Model)

	return md
}

func stringField(x *exif.Exif, field exif.FieldName) string {
	tag, err := x.Get(field)
	if err != nil {
		return ""
	}
	val, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(val)
}

// ConvertToDegrees converts a degrees/minutes/seconds triple and its
// hemisphere reference to signed decimal degrees. South and west references
// negate the result.
func ConvertToDegrees(degrees, minutes, seconds float64, ref string) float64 {
	decimal := degrees + minutes/60 + seconds/3600
	if ref == "S" || ref == "W" {
		return -decimal
	}
	return decimal
}

func extractCoordinate(x *exif.Exif) (geo.Coordinate, bool) {
	lat, ok := extractAxis(x, exif.GPSLatitude, exif.GPSLatitudeRef)
	if !ok {
		return geo.Coordinate{}, false
	}
	lon, ok := extractAxis(x, exif.GPSLongitude, exif.GPSLongitudeRef)
	if !ok {
		return geo.Coordinate{}, false
	}
	return geo.Coordinate{Latitude: lat, Longitude: lon}, true
}

func extractAxis(x *exif.Exif, field, refField exif.FieldName) (float64, bool) {
	tag, err := x.Get(field)
	if err != nil || tag.Count < 3 {
		return 0, false
	}

	var dms [3]float64
	for i := 0; i < 3; i++ {
		num, den, err := tag.Rat2(i)
		if err != nil || den == 0 {
			return 0, false
		}
		dms[i] = float64(num) / float64(den)
	}

	ref := ""
	if refTag, err := x.Get(refField); err == nil {
		ref, _ = refTag.StringVal()
	}

	return ConvertToDegrees(dms[0], dms[1], dms[2], ref), true
}

// extractTimestamp tries the capture-time fields in order of reliability.
func extractTimestamp(x *exif.Exif) time.Time {
	fields := []exif.FieldName{
		exif.DateTimeOriginal,
		exif.DateTime,
		exif.DateTimeDigitized,
	}
	for _, field := range fields {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		raw, err := tag.StringVal()
		if err != nil {
			continue
		}
		if ts, err := time.Parse(exifTimeLayout, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
