package filetype

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodedSample(t *testing.T, encode func(*bytes.Buffer) error) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func pngSample(t *testing.T) []byte {
	return encodedSample(t, func(buf *bytes.Buffer) error {
		return png.Encode(buf, image.NewRGBA(image.Rect(0, 0, 2, 2)))
	})
}

func jpegSample(t *testing.T) []byte {
	return encodedSample(t, func(buf *bytes.Buffer) error {
		return jpeg.Encode(buf, image.NewRGBA(image.Rect(0, 0, 2, 2)), nil)
	})
}

func TestDetect(t *testing.T) {
	d := New()

	info := d.Detect(pngSample(t))
	if !info.IsImage || info.Extension != "png" {
		t.Errorf("PNG detected as %+v", info)
	}

	info = d.Detect(jpegSample(t))
	if !info.IsImage || info.Extension != "jpg" {
		t.Errorf("JPEG detected as %+v", info)
	}

	info = d.Detect([]byte("%PDF-1.7 not an image"))
	if info.IsImage {
		t.Errorf("PDF detected as image: %+v", info)
	}
}

func TestImageExtPrefersSniffedType(t *testing.T) {
	d := New()
	// magic bytes win over a contradicting hint
	if got := d.ImageExt(jpegSample(t), "png"); got != "jpg" {
		t.Errorf("ImageExt = %q, want jpg", got)
	}
}

func TestImageExtFallsBackToHint(t *testing.T) {
	d := New()
	for _, tc := range []struct{ hint, want string }{
		{"jpg", "jpg"},
		{"jpeg", "jpg"},
		{".JPEG", "jpg"},
		{"png", "png"},
		{"tiff", "tiff"},
	} {
		if got := d.ImageExt([]byte("unsniffable"), tc.hint); got != tc.want {
			t.Errorf("ImageExt(hint=%q) = %q, want %q", tc.hint, got, tc.want)
		}
	}
}

func TestImageExtDefaultsToPNG(t *testing.T) {
	d := New()
	if got := d.ImageExt(nil, ""); got != "png" {
		t.Errorf("ImageExt(nil) = %q, want png", got)
	}
	if got := d.ImageExt([]byte("unsniffable"), ""); got != "png" {
		t.Errorf("ImageExt(garbage) = %q, want png", got)
	}
}
