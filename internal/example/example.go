package example

import (
	"strconv"
	"strings"

	"NNC/internal/raw"
)

var menu = [...]struct {
	name string
	call func() []byte
}{
	{"MLP", MLP},
	{"LeNetTiny", LeNetTiny},
}

func Names() []string {
	names := make([]string, len(menu))
	for i := range &menu {
		names[i] = menu[i].name
	}
	return names
}

func Generate(name string) []byte {
	for i := range &menu {
		if menu[i].name == name {
			return menu[i].call()
		}
	}
	return nil
}

type state struct {
	prefix string
	text   []byte
	seed   int
}

func (st *state) line(a ...string) {
	st.text = append(st.text, strings.Join(a, "")...)
	st.text = append(st.text, '\n')
}

// config writes every Config field at its default, except the prefix.
func (st *state) config() {
	st.line(raw.KeyConfig, ":")
	for _, seg := range raw.Guide["Config"].Segs {
		val := seg.Default
		if seg.Label == "prefix" {
			val = st.prefix
		}
		st.line("  ", seg.Label, raw.Binder, val)
	}
	st.line(raw.KeyLayers, ":")
}

// next is a repeatable pseudo-random weight in [-0.8, 0.9]. Doubling
// modulo 19 visits every nonzero residue before repeating.
func (st *state) next() string {
	if st.seed == 0 {
		st.seed = 1
	}
	st.seed = st.seed * 2 % 19
	return strconv.FormatFloat(float64(st.seed-9)/10, 'f', -1, 64)
}

// array is a nested sequence of fresh weights with the given dims,
// innermost last.
func (st *state) array(dims ...int) string {
	if len(dims) == 0 {
		return st.next()
	}
	items := make([]string, dims[0])
	for i := range items {
		items[i] = st.array(dims[1:]...)
	}
	return "[" + strings.Join(items, ", ") + "]"
}

func shape(h, w, c int) string {
	itoa := strconv.Itoa
	return "[" + itoa(h) + ", " + itoa(w) + ", " + itoa(c) + "]"
}

func (st *state) layer(kind string, fields ...string) {
	st.line("  - ", raw.KeyType, raw.Binder, kind)
	for i := 0; i+1 < len(fields); i += 2 {
		st.line("    ", fields[i], raw.Binder, fields[i+1])
	}
}

func (st *state) input(size int) {
	st.layer("Input", "size", strconv.Itoa(size))
}

func (st *state) dense(in, out int, activation string) {
	st.layer("Dense",
		"activation", activation,
		"weights", st.array(in, out),
		"biases", st.array(out),
	)
}

// MLP is a small fully connected classifier: 8 inputs, two hidden layers,
// and 4 softmax outputs.
func MLP() []byte {
	st := &state{prefix: "mlp"}
	st.config()
	st.input(8)
	st.dense(8, 16, "relu")
	st.dense(16, 8, "tanh")
	st.dense(8, 4, "linear")
	st.layer("Softmax")
	return st.text
}

// LeNetTiny is a scaled-down LeNet over a 6×6 single-channel image: a
// convolution, both kinds of pooling, a dense layer, and softmax.
func LeNetTiny() []byte {
	const (
		side    = 6
		kernel  = 3
		filters = 2
		classes = 3
	)
	st := &state{prefix: "lenet"}
	st.config()
	st.input(side * side)
	st.layer("Conv2D",
		"padding", "same",
		"kernel_size", strconv.Itoa(kernel),
		"filters", strconv.Itoa(filters),
		"input_shape", shape(side, side, 1),
		"activation", "relu",
		"weights", st.array(kernel, kernel, 1, filters),
		"biases", st.array(filters),
	)
	st.layer("MaxPooling2D",
		"strides", "2",
		"pool_size", "2",
		"input_shape", shape(side, side, filters),
	)
	st.layer("AveragePooling2D",
		"padding", "same",
		"pool_size", "2",
		"input_shape", shape(side/2, side/2, filters),
		"output_shape", shape(side/2, side/2, filters),
	)
	st.dense(side/2*side/2*filters, classes, "sigmoid")
	st.layer("Softmax", "size", strconv.Itoa(classes))
	return st.text
}
