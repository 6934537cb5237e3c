package compile

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"NNC/internal/compile/author"
	"NNC/internal/compile/author/flow"
	"NNC/internal/compile/author/tobuild"
	"NNC/internal/compile/plan"
	"NNC/internal/layer"
	"NNC/internal/raw"
	"NNC/internal/tensor"
)

// Result is a complete generation. There is no partial Result: any error
// leaves nothing to write.
type Result struct {
	Name    string
	H, C, G []byte
	Flows   []*flow.Node
	Build   *Build
}

// Build describes how the generated files fit together.
type Build struct {
	Sources  []string
	Headers  []string
	Binary   string
	Compiler string
	DataType string
	Strategy string
	InSize   int
	OutSize  int
}

// UnsupportedStrategyError is a strategy with no code generator.
type UnsupportedStrategyError struct {
	Strategy string
}

func (e *UnsupportedStrategyError) Error() string {
	return fmt.Sprintf("unsupported strategy %q (want one of %q)", e.Strategy, plan.StrategyStrings)
}

func Compile(text []byte) (*Result, error) {
	net, err := raw.Parse(text)
	if err != nil {
		return nil, err
	}
	st := &state{net: net}
	if err := st.load(); err != nil {
		return nil, err
	}
	if err := st.stages(); err != nil {
		return nil, fmt.Errorf("compile failed: %w", err)
	}
	return st.result(), nil
}

type state struct {
	net *raw.Net
	nn  *layer.Network
	pl  *plan.Plan
	out *author.Output
}

// load builds the layers. Its errors already carry the loader's prefix.
func (st *state) load() error {
	nn, err := st.net.Network()
	if err != nil {
		return err
	}
	st.nn = nn
	return nil
}

func (st *state) stages() error {
	for _, stage := range [...]func() error{
		st.stage1,
		st.stage2,
		st.stage3,
	} {
		if err := stage(); err != nil {
			return err
		}
	}
	return nil
}

func (st *state) stage1() error {
	cfg := st.net.Config
	strategy, ok := plan.ParseStrategy(cfg.Strategy)
	if !ok {
		return &UnsupportedStrategyError{Strategy: cfg.Strategy}
	}
	if err := cfg.Tiling.Valid(); err != nil {
		return fmt.Errorf("line %d: %w", cfg.LineNum, err)
	}
	st.pl = &plan.Plan{Config: cfg, Strategy: strategy, Net: st.nn}
	return nil
}

// stage2 checks every Conv2D's implicit-GEMM result against the direct
// convolution on a fixed probe input.
func (st *state) stage2() error {
	if !st.pl.Config.Verify {
		return nil
	}
	for _, l := range st.pl.Net.Layers() {
		cv, ok := l.(*layer.Conv2D)
		if !ok {
			continue
		}
		if err := cv.Verify(Probe(cv.InSize()), st.pl.Config.Tiling); err != nil {
			return err
		}
	}
	return nil
}

func (st *state) stage3() error {
	st.out = author.Implement(st.pl)
	if len(st.out.H) == 0 || len(st.out.C) == 0 || len(st.out.G) == 0 {
		return errors.New("generated an empty file")
	}
	return nil
}

func (st *state) result() *Result {
	var (
		cfg    = st.pl.Config
		prefix = cfg.Prefix
	)
	return &Result{
		Name:  prefix,
		H:     st.out.H,
		C:     st.out.C,
		G:     st.out.G,
		Flows: st.out.Flows,
		Build: &Build{
			Sources:  tobuild.Files(st.pl),
			Headers:  []string{prefix + ".h"},
			Binary:   prefix,
			Compiler: "gcc",
			DataType: raw.DataTypeStrings[cfg.DataType],
			Strategy: st.pl.Strategy.String(),
			InSize:   st.pl.Net.InSize(),
			OutSize:  st.pl.Net.OutSize(),
		},
	}
}

// Probe is a deterministic input vector of n elements in [-1, 1].
func Probe(n int) tensor.Tensor {
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(math.Sin(float64(i) + 1))
	}
	return tensor.Vector(data...)
}

// FlowFacts is the JSON form of the loop trees, one per table-driven layer
// in network order.
func (r *Result) FlowFacts() ([]byte, error) {
	flows := r.Flows
	if flows == nil {
		flows = []*flow.Node{}
	}
	return json.MarshalIndent(flows, "", "  ")
}
