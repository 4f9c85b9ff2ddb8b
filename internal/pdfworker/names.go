package pdfworker

import (
	"fmt"
	"strconv"
	"strings"
)

// XrefDelimiter separates the page-number field from the xref field in
// extracted-page filenames. The literal can never occur inside a page
// number, so splitting on it is unambiguous.
const XrefDelimiter = "_mcmxref"

// EntryKind tells how a page entry is produced.
type EntryKind int

const (
	// EntryRendered names a page that is rasterized to PNG.
	EntryRendered EntryKind = iota
	// EntryExtracted names a page recovered from an embedded image.
	EntryExtracted
)

// Entry is a decoded page filename.
type Entry struct {
	Kind EntryKind
	// Page is the zero-based page index.
	Page int
	// Xref is the image object number, only set for EntryExtracted.
	Xref int
	// Ext is the filename extension without the dot.
	Ext string
}

// RenderedName encodes the filename for a rasterized page. page is the
// zero-based index; the visible number is one-based, zero-padded to
// four digits (wider numbers widen the field).
func RenderedName(page int) string {
	return fmt.Sprintf("page%04d.png", page+1)
}

// ExtractedName encodes the filename for a page recovered from the
// embedded image identified by xref.
func ExtractedName(page, xref int, ext string) string {
	return fmt.Sprintf("page%04d%s%04d.%s", page+1, XrefDelimiter, xref, ext)
}

// ParseName decodes a page filename back into its entry. The decoding
// must round-trip exactly with RenderedName/ExtractedName for the
// lifetime of one document session.
func ParseName(name string) (Entry, error) {
	if !strings.HasPrefix(name, "page") {
		return Entry{}, fmt.Errorf("not a page entry: %q", name)
	}

	if pagePart, xrefPart, found := strings.Cut(name, XrefDelimiter); found {
		page, err := strconv.Atoi(strings.TrimPrefix(pagePart, "page"))
		if err != nil || page < 1 {
			return Entry{}, fmt.Errorf("bad page number in %q", name)
		}
		xrefField, ext, found := strings.Cut(xrefPart, ".")
		if !found {
			return Entry{}, fmt.Errorf("missing extension in %q", name)
		}
		xref, err := strconv.Atoi(xrefField)
		if err != nil {
			return Entry{}, fmt.Errorf("bad xref in %q", name)
		}
		return Entry{Kind: EntryExtracted, Page: page - 1, Xref: xref, Ext: ext}, nil
	}

	pageField, ext, found := strings.Cut(strings.TrimPrefix(name, "page"), ".")
	if !found {
		return Entry{}, fmt.Errorf("missing extension in %q", name)
	}
	page, err := strconv.Atoi(pageField)
	if err != nil || page < 1 {
		return Entry{}, fmt.Errorf("bad page number in %q", name)
	}
	return Entry{Kind: EntryRendered, Page: page - 1, Ext: ext}, nil
}
