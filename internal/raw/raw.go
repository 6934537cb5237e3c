package raw

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"NNC/internal/act"
	"NNC/internal/gemm"
	"NNC/internal/layer"
	"NNC/internal/pad"
	"NNC/internal/tensor"

	"gopkg.in/yaml.v3"
)

type Node interface {
	LineNumber() int
}

type DataType int

const (
	Float DataType = iota
	Double
)

var DataTypeStrings = []string{
	Float:  "float",
	Double: "double",
}

func (d DataType) String() string { return DataTypeStrings[d] }

type Config struct {
	LineNum  int
	Prefix   string
	Strategy string
	DataType DataType
	Tiling   gemm.Tiling
	Verify   bool

	// WeightLayout orders the elements of emitted weight arrays.
	WeightLayout tensor.Order
}

func (c *Config) LineNumber() int { return c.LineNum }

type Input struct {
	LineNum int
	Size    int
}

func (i *Input) LineNumber() int { return i.LineNum }

type Dense struct {
	LineNum    int
	Activation act.Kind
	Weights    tensor.Tensor
	Biases     tensor.Tensor
}

func (d *Dense) LineNumber() int { return d.LineNum }

type Conv2D struct {
	LineNum      int
	Padding      pad.Mode
	Strides      int
	KernelSize   int
	DilationRate int
	Filters      int
	InputShape   []int
	OutputShape  []int
	Activation   act.Kind
	Weights      tensor.Tensor
	Biases       tensor.Tensor
}

func (c *Conv2D) LineNumber() int { return c.LineNum }

type Pooling struct {
	LineNum     int
	Reduction   layer.Reduction
	Padding     pad.Mode
	Strides     int
	PoolSize    int
	InputShape  []int
	OutputShape []int
}

func (p *Pooling) LineNumber() int { return p.LineNum }

type Softmax struct {
	LineNum int
	Size    int
}

func (s *Softmax) LineNumber() int { return s.LineNum }

// Seg is one key of a layer or config mapping. Default is YAML text used
// when the key is absent, unless Required is set, in which case it is
// only an example.
type Seg struct {
	Doc      string
	Label    string
	Default  string
	Required bool
	Choices  []string
	Parse    func(*yaml.Node) (interface{}, error)
}

type Tail struct {
	Doc   string
	Segs  []*Seg
	Parse func(int, []interface{}) Node
}

// Guide maps each layer type (and "Config") to its keys.
var Guide = make(map[string]*Tail)

const (
	KeyConfig = "config"
	KeyLayers = "layers"
	KeyType   = "type"
	Binder    = ": "
)

// Net is a parsed network description.
type Net struct {
	Config *Config
	Layers []Node
}

// Parse reads a network description. JSON is accepted as a subset of
// YAML.
func Parse(text []byte) (*Net, error) {
	const (
		pre = "load failed: "
		wln = pre + "line %d: "
	)
	var doc yaml.Node
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return nil, errors.New(pre + err.Error())
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New(pre + "empty description")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf(wln+"expected a mapping with %s and %s",
			root.Line, KeyConfig, KeyLayers)
	}
	var (
		net     = new(Net)
		cfgNode *yaml.Node
		lsNode  *yaml.Node
	)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		switch key.Value {
		case KeyConfig:
			cfgNode = val
		case KeyLayers:
			lsNode = val
		default:
			return nil, fmt.Errorf(wln+"%s", key.Line,
				errExpected([]string{KeyConfig, KeyLayers}).Error())
		}
	}
	if cfgNode == nil {
		cfgNode = &yaml.Node{Kind: yaml.MappingNode, Line: root.Line}
	}
	cfg, err := fill(Guide["Config"], cfgNode, nil)
	if err != nil {
		return nil, err
	}
	net.Config = cfg.(*Config)
	if lsNode == nil || lsNode.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf(wln+"expected a %s sequence", root.Line, KeyLayers)
	}
	for _, item := range lsNode.Content {
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf(wln+"expected a layer mapping", item.Line)
		}
		kind := lookup(item, KeyType)
		if kind == nil {
			return nil, fmt.Errorf(wln+"layer has no %s", item.Line, KeyType)
		}
		tail := Guide[kind.Value]
		if tail == nil || kind.Value == "Config" {
			return nil, fmt.Errorf(wln+"%s%s%s", kind.Line, KeyType, Binder,
				errExpected(LayerTypes()).Error())
		}
		node, err := fill(tail, item, map[string]bool{KeyType: true})
		if err != nil {
			return nil, err
		}
		net.Layers = append(net.Layers, node)
	}
	return net, nil
}

// LayerTypes is every accepted type value in sorted order.
func LayerTypes() []string {
	var heads []string
	for head := range Guide {
		if head != "Config" {
			heads = append(heads, head)
		}
	}
	sort.Strings(heads)
	return heads
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func fill(tail *Tail, m *yaml.Node, skip map[string]bool) (Node, error) {
	const wln = "load failed: line %d: "
	if m.Kind != yaml.MappingNode {
		return nil, fmt.Errorf(wln+"expected a mapping", m.Line)
	}
	known := make(map[string]bool, len(tail.Segs))
	for _, seg := range tail.Segs {
		known[seg.Label] = true
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		key := m.Content[i]
		if !known[key.Value] && !skip[key.Value] {
			labels := make([]string, len(tail.Segs))
			for j, seg := range tail.Segs {
				labels[j] = seg.Label
			}
			return nil, fmt.Errorf(wln+"%s: %s", key.Line, key.Value,
				errExpected(labels).Error())
		}
	}
	vals := make([]interface{}, len(tail.Segs))
	for i, seg := range tail.Segs {
		node := lookup(m, seg.Label)
		line := m.Line
		if node == nil {
			if seg.Required {
				return nil, fmt.Errorf(wln+"missing %s (for example %s%s%s)",
					line, seg.Label, seg.Label, Binder, seg.Default)
			}
			node = defaultNode(seg.Default)
		} else {
			line = node.Line
		}
		val, err := seg.Parse(node)
		if err != nil {
			return nil, fmt.Errorf(wln+"%s: %s", line, seg.Label, err.Error())
		}
		vals[i] = val
	}
	return tail.Parse(m.Line, vals), nil
}

func defaultNode(text string) *yaml.Node {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil || len(doc.Content) == 0 {
		panic("bug")
	}
	return doc.Content[0]
}

const (
	identStr = `^[a-zA-Z_][a-zA-Z0-9_]*$`
)

var identRE = regexp.MustCompile(identStr)

const (
	identDoc  = "Must be a C identifier: " + identStr
	posIntDoc = "Must be a positive integer."
	nonNegDoc = "Must be a non-negative integer."
	shapeDoc  = "A sequence [height, width, channels] of positive integers."
	arrayDoc  = "Nested sequences of numbers, one level per dimension, " +
		"innermost last (row-major)."
)

var (
	errScalar   = errors.New("expected a scalar")
	errRejected = errors.New("rejected")
)

func errExpected(a []string) error {
	return errors.New("expected " + strings.Join(a, " or "))
}

func scalar(n *yaml.Node) (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", errScalar
	}
	return n.Value, nil
}

func ident(n *yaml.Node) (interface{}, error) {
	s, err := scalar(n)
	if err != nil {
		return nil, err
	}
	if !identRE.MatchString(s) {
		return nil, errors.New("does not match " + identStr)
	}
	return s, nil
}

func integer(n *yaml.Node, min int) (int, error) {
	s, err := scalar(n)
	if err != nil {
		return 0, err
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("expected an integer, got " + strconv.Quote(s))
	}
	if i < min || i >= 1<<31 {
		return 0, errRejected
	}
	return i, nil
}

func posInt(n *yaml.Node) (interface{}, error) { return integer(n, 1) }

func nonNeg(n *yaml.Node) (interface{}, error) { return integer(n, 0) }

func boolean(n *yaml.Node) (interface{}, error) {
	var b bool
	if err := n.Decode(&b); err != nil {
		return nil, errors.New("expected true or false")
	}
	return b, nil
}

func choice(n *yaml.Node, choices []string) (int, error) {
	s, err := scalar(n)
	if err != nil {
		return 0, err
	}
	for i, c := range choices {
		if s == c {
			return i, nil
		}
	}
	return 0, errExpected(choices)
}

func activation(n *yaml.Node) (interface{}, error) {
	s, err := scalar(n)
	if err != nil {
		return nil, err
	}
	return act.Parse(s)
}

func padding(n *yaml.Node) (interface{}, error) {
	i, err := choice(n, pad.ModeStrings)
	return pad.Mode(i), err
}

// dims parses a [height, width, channels] shape. An empty sequence is
// allowed when empty is set and means "derive it".
func dims(n *yaml.Node, empty bool) (interface{}, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, errors.New("expected a sequence")
	}
	if len(n.Content) == 0 && empty {
		return []int(nil), nil
	}
	if len(n.Content) != 3 {
		return nil, fmt.Errorf("expected 3 dimensions, got %d", len(n.Content))
	}
	out := make([]int, 3)
	for i, c := range n.Content {
		v, err := integer(c, 1)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// array reads a rectangular nested sequence of numbers of the given rank.
func array(n *yaml.Node, rank int) (interface{}, error) {
	var (
		shape []int
		data  []float32
	)
	for at, d := n, 0; d < rank; d++ {
		if at.Kind != yaml.SequenceNode || len(at.Content) == 0 {
			return nil, fmt.Errorf("expected %d nested non-empty sequences", rank)
		}
		shape = append(shape, len(at.Content))
		at = at.Content[0]
	}
	var walk func(*yaml.Node, int) error
	walk = func(at *yaml.Node, d int) error {
		if d == rank {
			s, err := scalar(at)
			if err != nil {
				return err
			}
			f, err := strconv.ParseFloat(s, 32)
			if err != nil {
				return fmt.Errorf("line %d: expected a number, got %q", at.Line, s)
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Errorf("line %d: expected a finite number, got %q", at.Line, s)
			}
			data = append(data, float32(f))
			return nil
		}
		if at.Kind != yaml.SequenceNode || len(at.Content) != shape[d] {
			return fmt.Errorf("line %d: not rectangular, want %d elements at depth %d",
				at.Line, shape[d], d)
		}
		for _, c := range at.Content {
			if err := walk(c, d+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(n, 0); err != nil {
		return nil, err
	}
	return tensor.New(shape, data)
}

func initConfig() {
	Guide["Config"] = &Tail{
		Doc: "Settings for the code generator, under the " + KeyConfig + " key.",
		Segs: []*Seg{
			{
				Doc:     "A string used for filenames and symbol names. " + identDoc,
				Label:   "prefix",
				Default: "inference",
				Parse:   ident,
			},
			{
				Doc: "How layers become C. generic emits one table-driven function per layer type, " +
					"semi emits one function body per layer with constant bounds, " +
					"unrolled emits straight-line code with literal weights, " +
					"optimized is generic with a tiled implicit-GEMM kernel per convolution.",
				Label:   "strategy",
				Default: "generic",
				Parse:   ident,
			},
			{
				Doc:     "The C floating point type of weights and activations.",
				Label:   "data_type",
				Default: DataTypeStrings[Float],
				Choices: DataTypeStrings,
				Parse: func(n *yaml.Node) (interface{}, error) {
					i, err := choice(n, DataTypeStrings)
					return DataType(i), err
				},
			},
			{
				Doc: "Implicit-GEMM tile sizes: m filters by n output positions, " +
					"reducing k kernel taps per step. Each a positive integer.",
				Label:   "tiling",
				Default: "{m: 8, n: 8, k: 4}",
				Parse: func(n *yaml.Node) (interface{}, error) {
					var t struct{ M, N, K int }
					if n.Kind != yaml.MappingNode || n.Decode(&t) != nil {
						return nil, errors.New("expected a mapping {m, n, k}")
					}
					tiling := gemm.Tiling{M: t.M, N: t.N, K: t.K}
					if err := tiling.Valid(); err != nil {
						return nil, err
					}
					return tiling, nil
				},
			},
			{
				Doc:     "Check every convolution's tiled kernel against the direct formula before writing code.",
				Label:   "verify",
				Default: "false",
				Parse:   boolean,
			},
			{
				Doc: "Element order of the emitted weight arrays. hybrid merges a kernel's " +
					"two spatial dimensions row-major and lays the rest out column-major.",
				Label:   "weight_layout",
				Default: tensor.OrderStrings[tensor.RowMajor],
				Choices: tensor.OrderStrings,
				Parse: func(n *yaml.Node) (interface{}, error) {
					i, err := choice(n, tensor.OrderStrings)
					return tensor.Order(i), err
				},
			},
		},
		Parse: func(l int, a []interface{}) Node {
			return &Config{
				LineNum:  l,
				Prefix:   a[0].(string),
				Strategy: a[1].(string),
				DataType: a[2].(DataType),
				Tiling:   a[3].(gemm.Tiling),
				Verify:   a[4].(bool),

				WeightLayout: a[5].(tensor.Order),
			}
		},
	}
}

func activationSeg() *Seg {
	return &Seg{
		Doc:     "The elementwise function applied to the layer's output.",
		Label:   "activation",
		Default: act.Strings[act.Linear],
		Choices: act.Strings,
		Parse:   activation,
	}
}

func paddingSeg() *Seg {
	return &Seg{
		Doc: "valid means no padding. same pads so that the output is " +
			"ceil(input/strides), splitting any odd total with the extra row/column " +
			"at the bottom/right.",
		Label:   "padding",
		Default: pad.ModeStrings[pad.Valid],
		Choices: pad.ModeStrings,
		Parse:   padding,
	}
}

func stridesSeg() *Seg {
	return &Seg{
		Doc:     "Step between window positions, both axes. " + posIntDoc,
		Label:   "strides",
		Default: "1",
		Parse:   posInt,
	}
}

func inputShapeSeg() *Seg {
	return &Seg{
		Doc:      "The input feature map. " + shapeDoc,
		Label:    "input_shape",
		Default:  "[28, 28, 1]",
		Required: true,
		Parse: func(n *yaml.Node) (interface{}, error) {
			return dims(n, false)
		},
	}
}

func outputShapeSeg() *Seg {
	return &Seg{
		Doc:     "The output feature map, checked against the padding rule. [] derives it. " + shapeDoc,
		Label:   "output_shape",
		Default: "[]",
		Parse: func(n *yaml.Node) (interface{}, error) {
			return dims(n, true)
		},
	}
}

func initInput() {
	Guide["Input"] = &Tail{
		Doc: "The network input, the first layer and only the first. " +
			"The generated inference function reads this many elements from nn_input.",
		Segs: []*Seg{
			{
				Doc:      "Number of input elements (for images, height*width*channels). " + posIntDoc,
				Label:    "size",
				Default:  "784",
				Required: true,
				Parse:    posInt,
			},
		},
		Parse: func(l int, a []interface{}) Node {
			return &Input{LineNum: l, Size: a[0].(int)}
		},
	}
}

func initDense() {
	Guide["Dense"] = &Tail{
		Doc: "A fully connected layer: activation(input·weights + biases). " +
			"The layer size is the number of weight columns.",
		Segs: []*Seg{
			activationSeg(),
			{
				Doc:      "Rows are inputs, columns are outputs. " + arrayDoc,
				Label:    "weights",
				Default:  "[[1, 0], [0, 1]]",
				Required: true,
				Parse: func(n *yaml.Node) (interface{}, error) {
					return array(n, 2)
				},
			},
			{
				Doc:      "One per output. " + arrayDoc,
				Label:    "biases",
				Default:  "[0, 0]",
				Required: true,
				Parse: func(n *yaml.Node) (interface{}, error) {
					return array(n, 1)
				},
			},
		},
		Parse: func(l int, a []interface{}) Node {
			return &Dense{
				LineNum:    l,
				Activation: a[0].(act.Kind),
				Weights:    a[1].(tensor.Tensor),
				Biases:     a[2].(tensor.Tensor),
			}
		},
	}
}

func initConv2D() {
	Guide["Conv2D"] = &Tail{
		Doc: "A 2D convolution with a square kernel over a height×width×channels map, " +
			"producing height×width×filters.",
		Segs: []*Seg{
			paddingSeg(),
			stridesSeg(),
			{
				Doc:      "Kernel height and width. " + posIntDoc,
				Label:    "kernel_size",
				Default:  "3",
				Required: true,
				Parse:    posInt,
			},
			{
				Doc:     "Spacing between kernel taps. " + posIntDoc,
				Label:   "dilation_rate",
				Default: "1",
				Parse:   posInt,
			},
			{
				Doc:      "Number of output channels. " + posIntDoc,
				Label:    "filters",
				Default:  "8",
				Required: true,
				Parse:    posInt,
			},
			inputShapeSeg(),
			outputShapeSeg(),
			activationSeg(),
			{
				Doc:      "kernel_size×kernel_size×input channels×filters. " + arrayDoc,
				Label:    "weights",
				Default:  "[[[[1]]]]",
				Required: true,
				Parse: func(n *yaml.Node) (interface{}, error) {
					return array(n, 4)
				},
			},
			{
				Doc:      "One per filter. " + arrayDoc,
				Label:    "biases",
				Default:  "[0]",
				Required: true,
				Parse: func(n *yaml.Node) (interface{}, error) {
					return array(n, 1)
				},
			},
		},
		Parse: func(l int, a []interface{}) Node {
			return &Conv2D{
				LineNum:      l,
				Padding:      a[0].(pad.Mode),
				Strides:      a[1].(int),
				KernelSize:   a[2].(int),
				DilationRate: a[3].(int),
				Filters:      a[4].(int),
				InputShape:   a[5].([]int),
				OutputShape:  a[6].([]int),
				Activation:   a[7].(act.Kind),
				Weights:      a[8].(tensor.Tensor),
				Biases:       a[9].(tensor.Tensor),
			}
		},
	}
}

func initPooling(r layer.Reduction, doc string) {
	Guide[r.String()] = &Tail{
		Doc: doc,
		Segs: []*Seg{
			paddingSeg(),
			stridesSeg(),
			{
				Doc:      "Window height and width. " + posIntDoc,
				Label:    "pool_size",
				Default:  "2",
				Required: true,
				Parse:    posInt,
			},
			inputShapeSeg(),
			outputShapeSeg(),
		},
		Parse: func(l int, a []interface{}) Node {
			return &Pooling{
				LineNum:     l,
				Reduction:   r,
				Padding:     a[0].(pad.Mode),
				Strides:     a[1].(int),
				PoolSize:    a[2].(int),
				InputShape:  a[3].([]int),
				OutputShape: a[4].([]int),
			}
		},
	}
}

func initSoftmax() {
	Guide["Softmax"] = &Tail{
		Doc: "exp(x_i)/sum_j exp(x_j) over the whole input vector.",
		Segs: []*Seg{
			{
				Doc:     "Number of elements. 0 takes the previous layer's size. " + nonNegDoc,
				Label:   "size",
				Default: "0",
				Parse:   nonNeg,
			},
		},
		Parse: func(l int, a []interface{}) Node {
			return &Softmax{LineNum: l, Size: a[0].(int)}
		},
	}
}

func init() {
	initConfig()
	initInput()
	initDense()
	initConv2D()
	initPooling(layer.Max, "Channelwise maximum over each window. "+
		"Taps in the padding are skipped.")
	initPooling(layer.Average, "Channelwise mean over each window. "+
		"Taps in the padding are skipped and the mean divides by the taps read.")
	initSoftmax()
}
