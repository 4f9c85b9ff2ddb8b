package pdfdoc

import "strconv"

// Content-stream scanner recovering embedded-image placement boxes.
//
// PDF places an image XObject by mapping the unit square through the
// current transformation matrix: "w 0 0 h x y cm /Img Do". The scanner
// tracks the CTM through q/Q/cm and, for every Do naming an image
// XObject, reports the transformed unit square's bounding box. Text and
// path operators are irrelevant here and are skipped.

// matrix is a PDF transformation matrix [a b c d e f]:
// x' = a*x + c*y + e, y' = b*x + d*y + f.
type matrix struct {
	a, b, c, d, e, f float64
}

func identity() matrix { return matrix{a: 1, d: 1} }

// mul returns the matrix applying m first, then n.
func mul(m, n matrix) matrix {
	return matrix{
		a: m.a*n.a + m.b*n.c,
		b: m.a*n.b + m.b*n.d,
		c: m.c*n.a + m.d*n.c,
		d: m.c*n.b + m.d*n.d,
		e: m.e*n.a + m.f*n.c + n.e,
		f: m.e*n.b + m.f*n.d + n.f,
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m.a*x + m.c*y + m.e, m.b*x + m.d*y + m.f
}

// unitSquareBBox transforms the unit square corners through m and
// returns their bounding box.
func unitSquareBBox(m matrix) Rect {
	xs := [4]float64{}
	ys := [4]float64{}
	xs[0], ys[0] = m.apply(0, 0)
	xs[1], ys[1] = m.apply(1, 0)
	xs[2], ys[2] = m.apply(0, 1)
	xs[3], ys[3] = m.apply(1, 1)
	r := Rect{X0: xs[0], Y0: ys[0], X1: xs[0], Y1: ys[0]}
	for i := 1; i < 4; i++ {
		if xs[i] < r.X0 {
			r.X0 = xs[i]
		}
		if xs[i] > r.X1 {
			r.X1 = xs[i]
		}
		if ys[i] < r.Y0 {
			r.Y0 = ys[i]
		}
		if ys[i] > r.Y1 {
			r.Y1 = ys[i]
		}
	}
	return r
}

// resolve maps an XObject resource name (without the leading slash) to
// an image xref; ok is false for form XObjects and unknown names.
type resolve func(name string) (xref int, ok bool)

// scanImagePlacements walks the decoded content stream and returns one
// ImageRef per image Do, in drawing order.
func scanImagePlacements(content []byte, lookup resolve) []ImageRef {
	var refs []ImageRef

	ctm := identity()
	var stack []matrix

	// operands collected since the last operator
	var nums []float64
	lastName := ""
	reset := func() {
		nums = nums[:0]
		lastName = ""
	}

	s := scanner{data: content}
	for {
		tok, kind := s.next()
		if kind == tokEOF {
			break
		}
		switch kind {
		case tokNumber:
			nums = append(nums, tok.num)
		case tokName:
			lastName = tok.text
		case tokOperator:
			switch tok.text {
			case "q":
				stack = append(stack, ctm)
			case "Q":
				if n := len(stack); n > 0 {
					ctm = stack[n-1]
					stack = stack[:n-1]
				}
			case "cm":
				if len(nums) >= 6 {
					m := nums[len(nums)-6:]
					ctm = mul(matrix{a: m[0], b: m[1], c: m[2], d: m[3], e: m[4], f: m[5]}, ctm)
				}
			case "Do":
				if lastName != "" {
					if xref, ok := lookup(lastName); ok {
						refs = append(refs, ImageRef{Xref: xref, BBox: unitSquareBBox(ctm)})
					}
				}
			case "BI":
				s.skipInlineImage()
			}
			reset()
		default:
			// strings, arrays, dicts: operands we never consume
		}
	}
	return refs
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokName
	tokOperator
	tokOther
)

type token struct {
	text string
	num  float64
}

type scanner struct {
	data []byte
	pos  int
}

func isWhite(b byte) bool {
	switch b {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelim(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (s *scanner) next() (token, tokenKind) {
	for s.pos < len(s.data) {
		b := s.data[s.pos]
		switch {
		case isWhite(b):
			s.pos++
		case b == '%':
			s.skipComment()
		case b == '(':
			s.skipString()
			return token{}, tokOther
		case b == '<':
			if s.pos+1 < len(s.data) && s.data[s.pos+1] == '<' {
				s.pos += 2 // dict open
			} else {
				s.skipHexString()
			}
			return token{}, tokOther
		case b == '>':
			s.pos++
			if s.pos < len(s.data) && s.data[s.pos] == '>' {
				s.pos++
			}
			return token{}, tokOther
		case b == '[' || b == ']' || b == '{' || b == '}':
			s.pos++
			return token{}, tokOther
		case b == '/':
			s.pos++
			start := s.pos
			for s.pos < len(s.data) && !isWhite(s.data[s.pos]) && !isDelim(s.data[s.pos]) {
				s.pos++
			}
			return token{text: string(s.data[start:s.pos])}, tokName
		case b == '+' || b == '-' || b == '.' || (b >= '0' && b <= '9'):
			start := s.pos
			s.pos++
			for s.pos < len(s.data) {
				c := s.data[s.pos]
				if c == '.' || c == '-' || (c >= '0' && c <= '9') {
					s.pos++
					continue
				}
				break
			}
			return token{num: parseNum(string(s.data[start:s.pos]))}, tokNumber
		default:
			start := s.pos
			for s.pos < len(s.data) && !isWhite(s.data[s.pos]) && !isDelim(s.data[s.pos]) {
				s.pos++
			}
			if s.pos == start {
				s.pos++ // lone delimiter we don't care about
				return token{}, tokOther
			}
			return token{text: string(s.data[start:s.pos])}, tokOperator
		}
	}
	return token{}, tokEOF
}

func (s *scanner) skipComment() {
	for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
		s.pos++
	}
}

// skipString consumes a literal string, honoring nesting and escapes.
func (s *scanner) skipString() {
	s.pos++ // consume '('
	depth := 1
	for s.pos < len(s.data) && depth > 0 {
		switch s.data[s.pos] {
		case '\\':
			s.pos++ // skip escaped byte
		case '(':
			depth++
		case ')':
			depth--
		}
		s.pos++
	}
}

func (s *scanner) skipHexString() {
	s.pos++ // consume '<'
	for s.pos < len(s.data) && s.data[s.pos] != '>' {
		s.pos++
	}
	if s.pos < len(s.data) {
		s.pos++
	}
}

// skipInlineImage consumes everything up to and including the EI
// operator that terminates a BI ... ID ... EI inline image.
func (s *scanner) skipInlineImage() {
	for s.pos+1 < len(s.data) {
		if s.data[s.pos] == 'E' && s.data[s.pos+1] == 'I' {
			before := s.pos == 0 || isWhite(s.data[s.pos-1])
			afterEnd := s.pos+2 >= len(s.data)
			after := afterEnd || isWhite(s.data[s.pos+2]) || isDelim(s.data[s.pos+2])
			if before && after {
				s.pos += 2
				return
			}
		}
		s.pos++
	}
	s.pos = len(s.data)
}

func parseNum(s string) float64 {
	// strconv handles forms like "-.5" fine; failures collapse to 0,
	// which at worst skews a bbox we would then refuse to extract.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
