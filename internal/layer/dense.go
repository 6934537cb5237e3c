package layer

import (
	"NNC/internal/act"
	"NNC/internal/tensor"

	"gonum.org/v1/gonum/mat"
)

// Dense is a fully connected layer. Weights are in×out row-major, so the
// weight for input j and output i is at j*out+i.
type Dense struct {
	Base
	In      int
	Weights tensor.Tensor
	Biases  tensor.Tensor
	Act     act.Kind
}

func NewDense(idx int, weights, biases tensor.Tensor, kind act.Kind) (*Dense, error) {
	ws := weights.Shape()
	if len(ws) != 2 {
		return nil, anError(idx, denseName,
			shapeError("dense", "weights must be 2D, got %d dimensions", len(ws)))
	}
	in, out := ws[0], ws[1]
	if bs := biases.Shape(); len(bs) != 1 || bs[0] != out {
		return nil, anError(idx, denseName,
			shapeError("dense", "biases must have %d elements, got %d", out, biases.Len()))
	}
	return &Dense{
		Base:    Base{idx: idx, size: out},
		In:      in,
		Weights: weights,
		Biases:  biases,
		Act:     kind,
	}, nil
}

func (d *Dense) Name() string { return denseName }

// Affine is input·weights + biases, before the activation. The input is
// read flat, whatever its shape.
func (d *Dense) Affine(in tensor.Tensor) (tensor.Tensor, error) {
	flat, err := in.Reshape(d.In)
	if err != nil {
		return tensor.Tensor{}, anError(d.idx, denseName, err)
	}
	var (
		x = mat.NewVecDense(d.In, widen(flat.Data()))
		w = mat.NewDense(d.In, d.size, widen(d.Weights.Data()))
		y = mat.NewVecDense(d.size, nil)
	)
	y.MulVec(w.T(), x)
	y.AddVec(y, mat.NewVecDense(d.size, widen(d.Biases.Data())))
	out := make([]float32, d.size)
	for i := range out {
		out[i] = float32(y.AtVec(i))
	}
	return tensor.Vector(out...), nil
}

func (d *Dense) Eval(in tensor.Tensor) (tensor.Tensor, error) {
	pre, err := d.Affine(in)
	if err != nil {
		return tensor.Tensor{}, err
	}
	return tensor.Vector(d.Act.Apply(pre.Data())...), nil
}

func widen(xs []float32) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}
