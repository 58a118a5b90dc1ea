package fl

import "time"

// Submission is one client's parameter update for a round.
type Submission struct {
	Round       uint64    `json:"round"`
	ClientID    string    `json:"client_id"`
	Params      []float64 `json:"params"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type Tensor struct {
	Name   string    `json:"name"`
	Shape  []int     `json:"shape"`
	Values []float64 `json:"values"`
}

// Checkpoint is the aggregated global model of one round.
type Checkpoint struct {
	Round     uint64    `json:"round"`
	Params    []float64 `json:"params"`
	Tensors   []Tensor  `json:"tensors"`
	Clients   []string  `json:"clients,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ParameterSpec declares one named parameter tensor of the model.
type ParameterSpec struct {
	Name  string `json:"name"  toml:"name"`
	Shape []int  `json:"shape" toml:"shape"`
}

// Size returns the number of scalar values held by the tensor.
// A tensor without dimensions is a scalar.
func (p ParameterSpec) Size() int {
	size := 1
	for _, d := range p.Shape {
		size *= d
	}

	return size
}

// ModelShape lists the model parameters in the order clients flatten them.
type ModelShape struct {
	Name       string          `json:"name"       toml:"name"`
	Parameters []ParameterSpec `json:"parameters" toml:"parameters"`
}

func (m ModelShape) Size() int {
	total := 0
	for _, p := range m.Parameters {
		total += p.Size()
	}

	return total
}

// DefaultModelShape is the two-layer perceptron (3 -> 64 -> 1) trained by clients.
func DefaultModelShape() ModelShape {
	return ModelShape{
		Name: "mlp",
		Parameters: []ParameterSpec{
			{Name: "layer1.weight", Shape: []int{64, 3}},
			{Name: "layer1.bias", Shape: []int{64}},
			{Name: "layer2.weight", Shape: []int{1, 64}},
			{Name: "layer2.bias", Shape: []int{1}},
		},
	}
}

type Aggregator interface {
	Aggregate(submissions map[string][]float64) ([]float64, error)
}
