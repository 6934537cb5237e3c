package doc

import (
	"sort"
	"strings"
	"unicode"

	"NNC/internal/raw"
)

const (
	empty   = ""
	space   = " "
	dash    = "-"
	newline = "\n"
	indent  = space + space + space + space
	divider = dash + dash + dash + dash + newline
	width   = 80
)

func line(to []byte, dent, text string) []byte {
	to = append(to, dent...)
	to = append(to, text...)
	to = append(to, newline...)
	return to
}

func para(to []byte, dent, text string) []byte {
	to = append(to, newline...)
	fit := width - len(dent)
	var i, j, ij, ik int
	for k, r := range text {
		if unicode.IsSpace(r) {
			if ik > fit && ij != 0 {
				to = line(to, dent, text[i:j])
				i = j + 1
				ik -= ij + 1
			}
			j, ij = k, ik
		}
		ik += 1
	}
	if ik > fit && ij != 0 {
		to = line(to, dent, text[i:j])
		i = j + 1
		ik -= ij + 1
	}
	if ik != 0 {
		to = line(to, dent, text[i:])
	}
	return to
}

// heads is Config first, then the layer types in sorted order.
func heads() []string {
	hs := make([]string, 0, len(raw.Guide))
	for head := range raw.Guide {
		if head != "Config" {
			hs = append(hs, head)
		}
	}
	sort.Strings(hs)
	return append([]string{"Config"}, hs...)
}

func title(head string) string {
	if head == "Config" {
		return raw.KeyConfig + ":"
	}
	return raw.KeyType + raw.Binder + head
}

func about(seg *raw.Seg) string {
	text := seg.Label + raw.Binder + space + seg.Doc
	if len(seg.Choices) != 0 {
		text += " One of: " + strings.Join(seg.Choices, ", ") + "."
	}
	if seg.Required {
		text += " Required."
	}
	return text
}

// Bytes is the reference of every key a network description accepts,
// each shown with an example value.
func Bytes() (to []byte) {
	for i, head := range heads() {
		tail := raw.Guide[head]
		if i != 0 {
			to = append(to, newline+divider+newline...)
		}
		to = append(to, title(head)+newline...)
		for _, seg := range tail.Segs {
			to = append(to, indent+seg.Label+raw.Binder+seg.Default+newline...)
		}
		to = para(to, empty, tail.Doc)
		for _, seg := range tail.Segs {
			to = para(to, indent, about(seg))
		}
	}
	return
}
