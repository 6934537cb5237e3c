package raw

import (
	"errors"
	"fmt"

	"NNC/internal/layer"
)

// Network builds and links the layers. Errors keep their layer.Error or
// layer.TopologyError cause and gain the source line.
func (n *Net) Network() (*layer.Network, error) {
	ls := make([]layer.Layer, len(n.Layers))
	for i, node := range n.Layers {
		l, err := build(i, node, ls)
		if err != nil {
			return nil, fmt.Errorf("load failed: line %d: %w", node.LineNumber(), err)
		}
		ls[i] = l
	}
	net, err := layer.NewNetwork(ls...)
	if err != nil {
		line := 0
		var te *layer.TopologyError
		if errors.As(err, &te) && te.Idx < len(n.Layers) {
			line = n.Layers[te.Idx].LineNumber()
		}
		return nil, fmt.Errorf("load failed: line %d: %w", line, err)
	}
	return net, nil
}

func build(idx int, node Node, prevs []layer.Layer) (layer.Layer, error) {
	switch node := node.(type) {
	case *Input:
		if idx != 0 {
			return nil, &layer.TopologyError{Idx: idx, Name: "Input", Msg: "Input must come first"}
		}
		return layer.NewInput(node.Size)
	case *Dense:
		return layer.NewDense(idx, node.Weights, node.Biases, node.Activation)
	case *Conv2D:
		cfg := layer.Conv2DConfig{
			Padding:  node.Padding,
			Stride:   node.Strides,
			Kernel:   node.KernelSize,
			Dilation: node.DilationRate,
			Filters:  node.Filters,
			InH:      node.InputShape[0],
			InW:      node.InputShape[1],
			InC:      node.InputShape[2],
			Weights:  node.Weights,
			Biases:   node.Biases,
			Act:      node.Activation,
		}
		if s := node.OutputShape; s != nil {
			if s[2] != node.Filters {
				return nil, &layer.Error{Idx: idx, Name: "Conv2D",
					Err: fmt.Errorf("output_shape has %d channels, filters is %d", s[2], node.Filters)}
			}
			cfg.OutH, cfg.OutW = s[0], s[1]
		}
		return layer.NewConv2D(idx, cfg)
	case *Pooling:
		cfg := layer.PoolingConfig{
			Reduction: node.Reduction,
			Padding:   node.Padding,
			Stride:    node.Strides,
			PoolSize:  node.PoolSize,
			InH:       node.InputShape[0],
			InW:       node.InputShape[1],
			InC:       node.InputShape[2],
		}
		if s := node.OutputShape; s != nil {
			if s[2] != cfg.InC {
				return nil, &layer.Error{Idx: idx, Name: node.Reduction.String(),
					Err: fmt.Errorf("output_shape has %d channels, input has %d", s[2], cfg.InC)}
			}
			cfg.OutH, cfg.OutW = s[0], s[1]
		}
		return layer.NewPooling(idx, cfg)
	case *Softmax:
		size := node.Size
		if size == 0 && idx > 0 {
			size = prevs[idx-1].Size()
		}
		return layer.NewSoftmax(idx, size)
	default:
		panic("bug")
	}
}
