package pdfdoc

import (
	"math"
	"testing"
)

func imgLookup(names map[string]int) resolve {
	return func(name string) (int, bool) {
		xref, ok := names[name]
		return xref, ok
	}
}

func rectNear(a, b Rect) bool {
	const eps = 1e-9
	return math.Abs(a.X0-b.X0) < eps && math.Abs(a.Y0-b.Y0) < eps &&
		math.Abs(a.X1-b.X1) < eps && math.Abs(a.Y1-b.Y1) < eps
}

func TestScanFullPagePlacement(t *testing.T) {
	content := []byte("q 612 0 0 792 0 0 cm /Im0 Do Q")
	refs := scanImagePlacements(content, imgLookup(map[string]int{"Im0": 7}))
	if len(refs) != 1 {
		t.Fatalf("got %d placements, want 1", len(refs))
	}
	if refs[0].Xref != 7 {
		t.Errorf("xref = %d, want 7", refs[0].Xref)
	}
	want := Rect{X0: 0, Y0: 0, X1: 612, Y1: 792}
	if !rectNear(refs[0].BBox, want) {
		t.Errorf("bbox = %+v, want %+v", refs[0].BBox, want)
	}
}

func TestScanTranslatedPlacement(t *testing.T) {
	content := []byte("q 100 0 0 50 30.5 -20 cm /Im1 Do Q")
	refs := scanImagePlacements(content, imgLookup(map[string]int{"Im1": 3}))
	if len(refs) != 1 {
		t.Fatalf("got %d placements, want 1", len(refs))
	}
	want := Rect{X0: 30.5, Y0: -20, X1: 130.5, Y1: 30}
	if !rectNear(refs[0].BBox, want) {
		t.Errorf("bbox = %+v, want %+v", refs[0].BBox, want)
	}
}

func TestScanNestedStates(t *testing.T) {
	// the inner q/Q scales on top of the outer translation; after Q the
	// outer CTM is restored for the second image
	content := []byte(`
q 1 0 0 1 100 200 cm
  q 50 0 0 50 0 0 cm /A Do Q
  q 10 0 0 10 5 5 cm /B Do Q
Q`)
	refs := scanImagePlacements(content, imgLookup(map[string]int{"A": 1, "B": 2}))
	if len(refs) != 2 {
		t.Fatalf("got %d placements, want 2", len(refs))
	}
	wantA := Rect{X0: 100, Y0: 200, X1: 150, Y1: 250}
	wantB := Rect{X0: 105, Y0: 205, X1: 115, Y1: 215}
	if !rectNear(refs[0].BBox, wantA) {
		t.Errorf("A bbox = %+v, want %+v", refs[0].BBox, wantA)
	}
	if !rectNear(refs[1].BBox, wantB) {
		t.Errorf("B bbox = %+v, want %+v", refs[1].BBox, wantB)
	}
}

func TestScanRotatedPlacement(t *testing.T) {
	// 90 degree rotation of a 100x200 image: [0 100 -200 0 200 0]
	content := []byte("0 100 -200 0 200 0 cm /Im0 Do")
	refs := scanImagePlacements(content, imgLookup(map[string]int{"Im0": 9}))
	if len(refs) != 1 {
		t.Fatalf("got %d placements, want 1", len(refs))
	}
	want := Rect{X0: 0, Y0: 0, X1: 200, Y1: 100}
	if !rectNear(refs[0].BBox, want) {
		t.Errorf("bbox = %+v, want %+v", refs[0].BBox, want)
	}
}

func TestScanIgnoresFormXObjects(t *testing.T) {
	// Fm0 resolves to nothing (a form, not an image)
	content := []byte("q 10 0 0 10 0 0 cm /Fm0 Do Q q 612 0 0 792 0 0 cm /Im0 Do Q")
	refs := scanImagePlacements(content, imgLookup(map[string]int{"Im0": 4}))
	if len(refs) != 1 || refs[0].Xref != 4 {
		t.Fatalf("got %+v, want only Im0", refs)
	}
}

func TestScanIgnoresTextAndPaths(t *testing.T) {
	content := []byte(`
BT /F1 12 Tf 72 700 Td (some (nested) text with /Im0 Do inside) Tj ET
0 0 100 100 re f
<48656c6c6f> Tj
q 612 0 0 792 0 0 cm /Im0 Do Q`)
	refs := scanImagePlacements(content, imgLookup(map[string]int{"Im0": 5}))
	if len(refs) != 1 {
		t.Fatalf("got %d placements, want 1", len(refs))
	}
}

func TestScanSkipsInlineImages(t *testing.T) {
	// binary inline-image payload may contain anything, including what
	// looks like operators
	content := []byte("BI /W 2 /H 2 /CS /RGB /BPC 8 ID \x00/Im0 Do q Q\xff EI\nq 612 0 0 792 0 0 cm /Im0 Do Q")
	refs := scanImagePlacements(content, imgLookup(map[string]int{"Im0": 6}))
	if len(refs) != 1 {
		t.Fatalf("got %d placements, want 1", len(refs))
	}
}

func TestScanComments(t *testing.T) {
	content := []byte("% /Ghost Do\nq 612 0 0 792 0 0 cm /Im0 Do Q")
	refs := scanImagePlacements(content, imgLookup(map[string]int{"Im0": 8, "Ghost": 99}))
	if len(refs) != 1 || refs[0].Xref != 8 {
		t.Fatalf("got %+v, want only Im0", refs)
	}
}

func TestScanRepeatedPlacements(t *testing.T) {
	content := []byte("q 10 0 0 10 0 0 cm /Im0 Do Q q 10 0 0 10 50 0 cm /Im0 Do Q")
	refs := scanImagePlacements(content, imgLookup(map[string]int{"Im0": 2}))
	if len(refs) != 2 {
		t.Fatalf("got %d placements, want 2", len(refs))
	}
	if refs[0].BBox.X0 == refs[1].BBox.X0 {
		t.Error("repeated placements should carry distinct boxes")
	}
}

func TestScanUnbalancedRestore(t *testing.T) {
	// a stray Q with an empty stack must not panic or corrupt the CTM
	content := []byte("Q Q q 612 0 0 792 0 0 cm /Im0 Do Q")
	refs := scanImagePlacements(content, imgLookup(map[string]int{"Im0": 1}))
	if len(refs) != 1 {
		t.Fatalf("got %d placements, want 1", len(refs))
	}
	want := Rect{X0: 0, Y0: 0, X1: 612, Y1: 792}
	if !rectNear(refs[0].BBox, want) {
		t.Errorf("bbox = %+v, want %+v", refs[0].BBox, want)
	}
}

func TestUnitSquareBBoxNegativeScale(t *testing.T) {
	// mirrored placement: negative width still yields a positive box
	m := matrix{a: -612, d: 792, e: 612}
	got := unitSquareBBox(m)
	want := Rect{X0: 0, Y0: 0, X1: 612, Y1: 792}
	if !rectNear(got, want) {
		t.Errorf("bbox = %+v, want %+v", got, want)
	}
}

func TestRectArea(t *testing.T) {
	r := Rect{X0: 10, Y0: 20, X1: 110, Y1: 70}
	if got := r.Width(); got != 100 {
		t.Errorf("Width = %v, want 100", got)
	}
	if got := r.Height(); got != 50 {
		t.Errorf("Height = %v, want 50", got)
	}
	if got := r.Area(); got != 5000 {
		t.Errorf("Area = %v, want 5000", got)
	}
}
