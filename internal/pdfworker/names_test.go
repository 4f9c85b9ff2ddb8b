package pdfworker

import "testing"

func TestRenderedName(t *testing.T) {
	if got := RenderedName(6); got != "page0007.png" {
		t.Errorf("RenderedName(6) = %q, want page0007.png", got)
	}
	if got := RenderedName(0); got != "page0001.png" {
		t.Errorf("RenderedName(0) = %q, want page0001.png", got)
	}
}

func TestExtractedName(t *testing.T) {
	if got := ExtractedName(6, 42, "jpg"); got != "page0007_mcmxref0042.jpg" {
		t.Errorf("ExtractedName = %q, want page0007_mcmxref0042.jpg", got)
	}
}

func TestParseNameRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		want Entry
	}{
		{RenderedName(0), Entry{Kind: EntryRendered, Page: 0, Ext: "png"}},
		{RenderedName(9998), Entry{Kind: EntryRendered, Page: 9998, Ext: "png"}},
		// fields widen past four digits instead of truncating
		{RenderedName(12344), Entry{Kind: EntryRendered, Page: 12344, Ext: "png"}},
		{ExtractedName(0, 7, "jpg"), Entry{Kind: EntryExtracted, Page: 0, Xref: 7, Ext: "jpg"}},
		{ExtractedName(41, 12345, "png"), Entry{Kind: EntryExtracted, Page: 41, Xref: 12345, Ext: "png"}},
		{ExtractedName(3, -1, "png"), Entry{Kind: EntryExtracted, Page: 3, Xref: -1, Ext: "png"}},
	}
	for _, tc := range cases {
		got, err := ParseName(tc.name)
		if err != nil {
			t.Errorf("ParseName(%q): %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseName(%q) = %+v, want %+v", tc.name, got, tc.want)
		}
	}
}

func TestParseNameRejectsGarbage(t *testing.T) {
	for _, name := range []string{
		"",
		"cover.jpg",
		"page.png",
		"pageabcd.png",
		"page0001",
		"page0001_mcmxref0042",
		"page_mcmxref0042.jpg",
	} {
		if _, err := ParseName(name); err == nil {
			t.Errorf("ParseName(%q) succeeded, want error", name)
		}
	}
}
