// Package pdfworker implements the extraction engine that runs inside
// an isolated worker process. A Worker owns exactly one open document
// and classifies each page as either a recoverable full-page embedded
// image or a page that must be rasterized.
package pdfworker

import (
	"image"
	"math"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/naminx/mcomix/internal/filetype"
	"github.com/naminx/mcomix/internal/imaging"
	"github.com/naminx/mcomix/internal/metrics"
	"github.com/naminx/mcomix/internal/pdfdoc"
)

// fullPageTolerance is the allowed relative difference between the page
// area and the single image's placement area for the page to count as a
// full-page image.
const fullPageTolerance = 0.05

// Document is the view of an open PDF the worker operates on. Page
// indices are zero-based. pdfdoc.Document is the production
// implementation.
type Document interface {
	PageCount() int
	PageTextLen(index int) (int, error)
	PageRect(index int) (pdfdoc.Rect, error)
	PageRotation(index int) int
	ImageXrefs(index int) []int
	ListImages(index int) ([]pdfdoc.ImageRef, error)
	ExtractImage(index, xref int) (data []byte, formatHint string, found bool, err error)
	RenderPage(index, dpi int) (image.Image, error)
	Close() error
}

// Config carries the externally supplied preferences the worker needs.
type Config struct {
	// RenderDPI is used when rasterizing pages.
	RenderDPI int
	// AutoRotate compensates extracted images for page-level rotation.
	AutoRotate bool
	// JPEGQuality applies when a rotated image is re-encoded as JPEG.
	JPEGQuality int
}

// Worker classifies and extracts pages of one open document. It is
// single-threaded by construction: one worker per process, one caller
// per worker.
type Worker struct {
	doc Document
	cfg Config
	det *filetype.Detector

	// complexDoc short-circuits classification for the rest of the
	// document once any page fails the must-render test. Documents
	// mixing scan-only pages with richer pages are rare, and the
	// deeper placement inspection is costly.
	complexDoc bool

	// ext caches the extension probe. Empty until the first page
	// classifies as extractable.
	ext string
}

// Open opens the document at path and returns a worker owning it.
func Open(path string, cfg Config) (*Worker, error) {
	doc, err := pdfdoc.Open(path)
	if err != nil {
		return nil, err
	}
	return New(doc, cfg), nil
}

// New wraps an already-open document. Used directly by tests.
func New(doc Document, cfg Config) *Worker {
	if cfg.RenderDPI <= 0 {
		cfg.RenderDPI = 288
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = 95
	}
	return &Worker{doc: doc, cfg: cfg, det: filetype.New()}
}

// Close releases the document.
func (w *Worker) Close() error {
	return w.doc.Close()
}

// PageCount returns the number of pages in the document.
func (w *Worker) PageCount() int {
	return w.doc.PageCount()
}

// Contents returns a single-pass iterator producing one filename per
// page, in page order. Classification happens lazily per pull, so a
// caller that only wants the first few names never pays for the rest.
func (w *Worker) Contents() *ContentIterator {
	return &ContentIterator{w: w}
}

// ContentIterator is a lazy cursor over page entry names.
type ContentIterator struct {
	w    *Worker
	next int
}

// Next produces the following page's entry name. ok is false once all
// pages have been produced.
func (it *ContentIterator) Next() (name string, ok bool) {
	if it.next >= it.w.doc.PageCount() {
		return "", false
	}
	pg := it.next
	it.next++
	return it.w.entryName(pg), true
}

func (w *Worker) entryName(pg int) string {
	if w.extractAsImage(pg) {
		metrics.IncClassified("extract")
		return ExtractedName(pg, w.imageXref(pg), w.imageExtension(pg))
	}
	metrics.IncClassified("render")
	return RenderedName(pg)
}

// extractAsImage reports whether the page content can be recovered by
// extracting its embedded image instead of rendering.
func (w *Worker) extractAsImage(pg int) bool {
	if w.complexDoc {
		return false
	}
	return !w.mustRenderPage(pg) && w.canExtractImage(pg)
}

// mustRenderPage applies the cheap test that flags the vast majority of
// non-trivial pages: anything with text, or with an embedded-image
// count other than one, forces rendering and marks the whole document
// complex.
func (w *Worker) mustRenderPage(pg int) bool {
	textLen, err := w.doc.PageTextLen(pg)
	if err != nil {
		// unreadable text content: treat as text-bearing
		textLen = 1
	}
	if len(w.doc.ImageXrefs(pg)) != 1 || textLen > 0 {
		w.complexDoc = true
		log.Debug().Int("page", pg+1).Msg("must render page")
		return true
	}
	log.Debug().Int("page", pg+1).Msg("rendering not forced")
	return false
}

// canExtractImage makes the closer examination: the page's single image
// placement must cover the page, within fullPageTolerance of its area.
func (w *Worker) canExtractImage(pg int) bool {
	refs, err := w.doc.ListImages(pg)
	if err != nil || len(refs) != 1 {
		log.Debug().Int("page", pg+1).Int("images", len(refs)).Err(err).
			Msg("cannot extract, image placement count != 1")
		return false
	}
	pageRect, err := w.doc.PageRect(pg)
	if err != nil {
		return false
	}
	pageArea := pageRect.Area()
	areaDiff := math.Abs(pageArea - refs[0].BBox.Area())
	if areaDiff < fullPageTolerance*pageArea {
		log.Debug().Int("page", pg+1).Msg("can extract fullpage image")
		return true
	}
	log.Debug().Int("page", pg+1).
		Float64("page_area", pageArea).
		Float64("image_area", refs[0].BBox.Area()).
		Msg("cannot extract, image does not cover page")
	return false
}

// imageXref returns the first embedded image's object number, or -1.
func (w *Worker) imageXref(pg int) int {
	xrefs := w.doc.ImageXrefs(pg)
	if len(xrefs) == 0 {
		return -1
	}
	return xrefs[0]
}

// imageExtension returns the extension used for extracted pages. The
// probe runs once per document, on the first extractable page; all
// later pages are assumed to carry the same image type. That assumption
// is fragile in theory but a large performance win in practice.
func (w *Worker) imageExtension(pg int) string {
	if w.ext == "" {
		w.ext = w.probeImageType(pg)
	}
	return w.ext
}

// probeImageType extracts the page's first image and sniffs its format.
// Any failure degrades to "png": exotic encodings go through the
// backend's raw-to-PNG conversion on extraction anyway.
func (w *Worker) probeImageType(pg int) string {
	xref := w.imageXref(pg)
	if xref < 0 {
		return "png"
	}
	data, hint, found, err := w.doc.ExtractImage(pg, xref)
	if err != nil || !found {
		log.Debug().Int("page", pg+1).Int("xref", xref).Err(err).
			Msg("extension probe failed, falling back to png")
		return "png"
	}
	return w.det.ImageExt(data, hint)
}

// ExtractFile produces the file named by a previously listed entry
// under destDir. Entries that do not decode as page names are skipped.
// A missing embedded object is not an error: the observable signal is
// that no file is written.
func (w *Worker) ExtractFile(name, destDir string) error {
	entry, err := ParseName(name)
	if err != nil {
		log.Warn().Str("entry", name).Err(err).Msg("skipping unrecognized entry")
		return nil
	}
	outPath := filepath.Join(destDir, name)
	if entry.Kind == EntryExtracted {
		return w.extractXref(entry.Page, entry.Xref, outPath)
	}
	return w.renderPage(entry.Page, outPath)
}

// extractXref writes the raw embedded image for xref to path. The raw
// bytes are the unrotated original asset; when the page declares a
// rotation and auto-rotate is on, the image is counter-rotated to match
// what the rendered page would show.
func (w *Worker) extractXref(page, xref int, path string) error {
	data, _, found, err := w.doc.ExtractImage(page, xref)
	if err != nil {
		metrics.IncExtraction("error")
		return err
	}
	if !found {
		metrics.IncExtraction("miss")
		log.Debug().Int("page", page+1).Int("xref", xref).Msg("no image bytes for xref")
		return nil
	}

	rotation := w.doc.PageRotation(page)
	if w.cfg.AutoRotate && rotation != 0 {
		transpose := imaging.Rotate270
		switch rotation {
		case 180:
			transpose = imaging.Rotate180
		case 270:
			transpose = imaging.Rotate90
		}
		img, err := imaging.Decode(data)
		if err != nil {
			metrics.IncExtraction("error")
			return err
		}
		data, err = imaging.EncodeByExt(imaging.Rotate(img, transpose), path, w.cfg.JPEGQuality)
		if err != nil {
			metrics.IncExtraction("error")
			return err
		}
	}

	if err := imaging.WriteFileAtomic(path, data); err != nil {
		metrics.IncExtraction("error")
		return err
	}
	metrics.IncExtraction("ok")
	return nil
}

// renderPage rasterizes the page at the configured DPI and saves it as
// PNG. Rotation is already baked into the rendered pixels.
func (w *Worker) renderPage(page int, path string) error {
	start := time.Now()
	img, err := w.doc.RenderPage(page, w.cfg.RenderDPI)
	if err != nil {
		metrics.IncExtraction("error")
		return err
	}
	if err := imaging.SavePNG(img, path); err != nil {
		metrics.IncExtraction("error")
		return err
	}
	metrics.ObserveRender(time.Since(start))
	metrics.IncExtraction("ok")
	log.Debug().Int("page", page+1).Int("dpi", w.cfg.RenderDPI).Msg("rendered page")
	return nil
}
