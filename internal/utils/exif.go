package utils

import (
	"bytes"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

const exifTimeLayout = "2006:01:02 15:04:05"

// CaptureTime reads DateTimeOriginal (falling back to DateTime) from image
// bytes.  EXIF stamps carry no zone, so the wall time is read in loc.
// ok is false when the image has no usable stamp.
func CaptureTime(data []byte, loc *time.Location) (t time.Time, ok bool) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return time.Time{}, false
	}
	tag, err := x.Get(exif.DateTimeOriginal)
	if err != nil {
		if tag, err = x.Get(exif.DateTime); err != nil {
			return time.Time{}, false
		}
	}
	raw, err := tag.StringVal()
	if err != nil {
		return time.Time{}, false
	}
	t, err = time.ParseInLocation(exifTimeLayout, strings.TrimRight(strings.TrimSpace(raw), "\x00"), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
