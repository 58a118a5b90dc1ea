package fl

import (
	"fmt"
	"time"

	pkgerrors "github.com/absmach/flcoord/pkg/errors"
)

// BuildCheckpoint maps a flat parameter vector onto the named tensors of shape,
// consuming values in declaration order.
func BuildCheckpoint(params []float64, shape ModelShape) (Checkpoint, error) {
	if len(params) != shape.Size() {
		return Checkpoint{}, fmt.Errorf("%w: got %d values, model %q has %d", pkgerrors.ErrDimensionMismatch, len(params), shape.Name, shape.Size())
	}

	flat := make([]float64, len(params))
	copy(flat, params)

	tensors := make([]Tensor, 0, len(shape.Parameters))
	offset := 0
	for _, p := range shape.Parameters {
		n := p.Size()
		values := make([]float64, n)
		copy(values, flat[offset:offset+n])
		tensors = append(tensors, Tensor{
			Name:   p.Name,
			Shape:  append([]int(nil), p.Shape...),
			Values: values,
		})
		offset += n
	}

	return Checkpoint{
		Params:    flat,
		Tensors:   tensors,
		CreatedAt: time.Now().UTC(),
	}, nil
}
