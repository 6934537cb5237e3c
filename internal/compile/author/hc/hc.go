package hc

import "NNC/internal/compile/author/cgen"

type Section int

const (
	HFirst Section = iota
	HPragmaOnce
	HLinkage1
	HDefines
	HTable
	HData
	HActivation
	HLayers
	HInference
	HLinkage2
	HLast
	CFirst
	CToBuild
	CInclude
	CActivation
	CLayers
	CInference
	CLast
	GFirst
	GInclude
	GData
	GTable
	GLast
	sectionCount
)

// Sections collects generated text per section. Layers append to the
// sections they contribute to in network order; Join reads them back in
// section order.
type Sections struct {
	a [sectionCount][]byte
}

func (s *Sections) Append(to Section, from ...cgen.Gen) {
	for _, gen := range from {
		if gen != nil {
			s.a[to] = gen.Append(s.a[to])
		}
	}
}

// Empty reports whether nothing has been appended to a section.
func (s *Sections) Empty(at Section) bool {
	return len(s.a[at]) == 0
}

// Join returns the header, source, and globals files.
func (s *Sections) Join() (h, c, g []byte) {
	h = s.join(HFirst, HLast)
	c = s.join(CFirst, CLast)
	g = s.join(GFirst, GLast)
	return
}

func (s *Sections) join(first, last Section) (to []byte) {
	const (
		brace1  = '{'
		brace2  = '}'
		newline = '\n'
		paren1  = '('
		paren2  = ')'
		indent  = "    "
	)
	var prev byte
	depth := 0
	for _, from := range s.a[first : last+1] {
		for _, curr := range from {
			switch curr {
			case newline:
				if prev == brace1 || prev == paren1 {
					depth++
				}
			default:
				if prev == newline {
					if (curr == brace2 || curr == paren2) && depth > 0 {
						depth--
					}
					for i := 0; i < depth; i++ {
						to = append(to, indent...)
					}
				}
			}
			to = append(to, curr)
			prev = curr
		}
	}
	return
}
