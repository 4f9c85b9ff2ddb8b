// Package pdfdoc wraps the external PDF libraries behind the small set
// of primitives the extraction engine needs: page geometry, text
// probing, embedded-image enumeration and extraction, rasterization.
//
// go-fitz (MuPDF) supplies rendering and per-page text, pdfcpu supplies
// the cross-reference level access (image object numbers, raw streams,
// page dictionaries). Page indices are zero-based throughout; pdfcpu's
// one-based page numbers are an internal detail.
package pdfdoc

import (
	"fmt"
	"image"
	"io"
	"os"
	"regexp"
	"sort"

	fitz "github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rs/zerolog/log"
)

// Rect is an axis-aligned rectangle in PDF user space (points).
type Rect struct {
	X0, Y0, X1, Y1 float64
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }
func (r Rect) Area() float64   { return r.Width() * r.Height() }

// ImageRef describes one placement of an embedded image on a page.
type ImageRef struct {
	// Xref is the object number of the image stream in the document's
	// cross-reference table.
	Xref int
	// BBox is the placement rectangle in page user space.
	BBox Rect
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Document is an open PDF. It is owned by exactly one worker and must
// not be shared across goroutines or processes.
type Document struct {
	path string
	fz   *fitz.Document
	ctx  *model.Context
	dims []types.Dim
}

// Open parses the PDF at path with both backends. Failures are
// reported as *DocumentOpenError.
func Open(path string) (*Document, error) {
	fz, err := fitz.New(path)
	if err != nil {
		return nil, &DocumentOpenError{Path: path, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		fz.Close()
		return nil, &DocumentOpenError{Path: path, Err: err}
	}
	conf := model.NewDefaultConfiguration()
	conf.Cmd = model.EXTRACTIMAGES
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	f.Close()
	if err != nil {
		fz.Close()
		return nil, &DocumentOpenError{Path: path, Err: fmt.Errorf("pdfcpu read: %w", err)}
	}

	dims, err := api.PageDimsFile(path)
	if err != nil {
		fz.Close()
		return nil, &DocumentOpenError{Path: path, Err: fmt.Errorf("page dims: %w", err)}
	}

	log.Debug().Str("path", path).Int("pages", ctx.PageCount).Msg("document opened")
	return &Document{path: path, fz: fz, ctx: ctx, dims: dims}, nil
}

// Close releases both backends.
func (d *Document) Close() error {
	return d.fz.Close()
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return d.ctx.PageCount
}

// PageTextLen reports the amount of text content on a page, counted as
// runes with all whitespace stripped.
func (d *Document) PageTextLen(index int) (int, error) {
	text, err := d.fz.Text(index)
	if err != nil {
		return 0, fmt.Errorf("page %d text: %w", index+1, err)
	}
	return len([]rune(whitespaceRegex.ReplaceAllString(text, ""))), nil
}

// PageRect returns the page bounding rectangle in points.
func (d *Document) PageRect(index int) (Rect, error) {
	if index < 0 || index >= len(d.dims) {
		return Rect{}, fmt.Errorf("page %d out of range (document has %d pages)", index+1, len(d.dims))
	}
	dim := d.dims[index]
	return Rect{X0: 0, Y0: 0, X1: dim.Width, Y1: dim.Height}, nil
}

// PageRotation returns the page's declared rotation, one of 0, 90, 180
// or 270 degrees.
func (d *Document) PageRotation(index int) int {
	pageDict, _, _, err := d.ctx.PageDict(index+1, false)
	if err != nil || pageDict == nil {
		return 0
	}
	rot := pageDict.IntEntry("Rotate")
	if rot == nil {
		return 0
	}
	r := *rot % 360
	if r < 0 {
		r += 360
	}
	if r == 90 || r == 180 || r == 270 {
		return r
	}
	return 0
}

// ImageXrefs returns the object numbers of all image streams referenced
// by a page, in ascending order.
func (d *Document) ImageXrefs(index int) []int {
	nrs := pdfcpu.ImageObjNrs(d.ctx, index+1)
	sort.Ints(nrs)
	return nrs
}

// ExtractImage pulls the raw bytes of the embedded image identified by
// xref, along with the format hint reported by the extraction backend.
// found is false when the xref yields no image on that page; this is
// not an error.
//
// The returned bytes are always the unrotated original asset,
// unaffected by page-level rotation.
func (d *Document) ExtractImage(index, xref int) (data []byte, formatHint string, found bool, err error) {
	images, err := pdfcpu.ExtractPageImages(d.ctx, index+1, false)
	if err != nil {
		return nil, "", false, fmt.Errorf("extract page %d images: %w", index+1, err)
	}
	img, ok := images[xref]
	if !ok {
		return nil, "", false, nil
	}
	data, err = io.ReadAll(img)
	if err != nil {
		return nil, "", false, fmt.Errorf("read image stream %d: %w", xref, err)
	}
	if len(data) == 0 {
		return nil, "", false, nil
	}
	return data, img.FileType, true, nil
}

// RenderPage rasterizes a page at the given DPI. Page rotation is baked
// into the rendered pixels by the engine.
func (d *Document) RenderPage(index, dpi int) (image.Image, error) {
	img, err := d.fz.ImageDPI(index, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", index+1, err)
	}
	return img, nil
}

// ListImages returns one ImageRef per image placement drawn by the
// page's content streams, with bounding boxes in page user space.
func (d *Document) ListImages(index int) ([]ImageRef, error) {
	pageNr := index + 1

	imageNrs := make(map[int]bool)
	for _, nr := range pdfcpu.ImageObjNrs(d.ctx, pageNr) {
		imageNrs[nr] = true
	}
	if len(imageNrs) == 0 {
		return nil, nil
	}

	byName, err := d.xObjectRefs(pageNr)
	if err != nil {
		return nil, err
	}

	r, err := pdfcpu.ExtractPageContent(d.ctx, pageNr)
	if err != nil {
		return nil, fmt.Errorf("page %d content: %w", pageNr, err)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read page %d content: %w", pageNr, err)
	}

	refs := scanImagePlacements(content, func(name string) (int, bool) {
		nr, ok := byName[name]
		if !ok || !imageNrs[nr] {
			return 0, false
		}
		return nr, true
	})
	return refs, nil
}

// xObjectRefs maps the page's XObject resource names to their object
// numbers.
func (d *Document) xObjectRefs(pageNr int) (map[string]int, error) {
	pageDict, _, _, err := d.ctx.PageDict(pageNr, false)
	if err != nil {
		return nil, fmt.Errorf("page %d dict: %w", pageNr, err)
	}

	out := make(map[string]int)
	resObj, found := pageDict.Find("Resources")
	if !found {
		return out, nil
	}
	resDict, err := d.ctx.DereferenceDict(resObj)
	if err != nil || resDict == nil {
		return out, nil
	}
	xoObj, found := resDict.Find("XObject")
	if !found {
		return out, nil
	}
	xoDict, err := d.ctx.DereferenceDict(xoObj)
	if err != nil || xoDict == nil {
		return out, nil
	}
	for name, obj := range xoDict {
		if ind, ok := obj.(types.IndirectRef); ok {
			out[name] = ind.ObjectNumber.Value()
		}
	}
	return out, nil
}
