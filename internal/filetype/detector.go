package filetype

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// ImageInfo contains detected image type information.
type ImageInfo struct {
	MIMEType  string
	Extension string
	IsImage   bool
}

// Detector determines image file types from magic bytes, not filenames.
type Detector struct{}

// New creates a new image type detector.
func New() *Detector {
	return &Detector{}
}

// Detect sniffs the given raw bytes and reports the image type.
func (d *Detector) Detect(data []byte) *ImageInfo {
	mtype := mimetype.Detect(data)

	info := &ImageInfo{
		MIMEType:  mtype.String(),
		Extension: strings.TrimPrefix(mtype.Extension(), "."),
		IsImage:   strings.HasPrefix(mtype.String(), "image/"),
	}

	log.Debug().Str("mime", info.MIMEType).Str("ext", info.Extension).Msg("detected image type")
	return info
}

// ImageExt returns the filename extension for raw image bytes.
//
// hint is the format name reported by the PDF library for the embedded
// object ("jpg", "png", ...) and is trusted when sniffing fails. If
// neither source can name a type, "png" is returned: exotic encodings
// are converted to PNG by the fallback extraction path anyway.
func (d *Detector) ImageExt(data []byte, hint string) string {
	if len(data) > 0 {
		if info := d.Detect(data); info.IsImage && info.Extension != "" {
			return info.Extension
		}
	}
	if hint != "" {
		return normalizeExt(hint)
	}
	return "png"
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "jpeg" {
		return "jpg"
	}
	return ext
}
