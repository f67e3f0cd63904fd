// Package predict estimates HDB resale prices from flat features with a
// feed-forward model exported to YAML.
package predict

import (
	"errors"
	"math"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ErrUnknownCategory is returned when an input category was not seen in training.
var ErrUnknownCategory = errors.New("predict: unknown category")

// CategoricalColumn is one-hot encoded with the first category dropped.
type CategoricalColumn struct {
	Column     string   `yaml:"column"`
	Categories []string `yaml:"categories"`
}

// NumericColumn is standardized as (x - mean) / scale.
type NumericColumn struct {
	Column string  `yaml:"column"`
	Mean   float64 `yaml:"mean"`
	Scale  float64 `yaml:"scale"`
}

// Layer is a dense layer: out = activation(weights · in + bias).
type Layer struct {
	Weights    [][]float64 `yaml:"weights"` // [out][in]
	Bias       []float64   `yaml:"bias"`
	Activation string      `yaml:"activation"` // relu or linear
}

// Model holds the preprocessing parameters and network weights. The feature
// vector is the one-hot categoricals in order followed by the scaled numerics.
type Model struct {
	Categorical []CategoricalColumn `yaml:"categorical"`
	Numeric     []NumericColumn     `yaml:"numeric"`
	Layers      []Layer             `yaml:"layers"`

	index []map[string]int
}

// Load reads and validates a model file.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "predict: read %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML model.
func Parse(data []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "predict: decode model")
	}
	if err := m.init(); err != nil {
		return nil, err
	}
	return &m, nil
}

// NumFeatures is the width of the encoded feature vector.
func (m *Model) NumFeatures() int {
	n := len(m.Numeric)
	for _, c := range m.Categorical {
		n += len(c.Categories) - 1
	}
	return n
}

func (m *Model) init() error {
	var probe Input
	m.index = make([]map[string]int, len(m.Categorical))
	for i, c := range m.Categorical {
		if _, ok := probe.categorical(c.Column); !ok {
			return eris.Errorf("predict: unsupported categorical column %q", c.Column)
		}
		if len(c.Categories) == 0 {
			return eris.Errorf("predict: column %q has no categories", c.Column)
		}
		m.index[i] = make(map[string]int, len(c.Categories))
		for j, cat := range c.Categories {
			if _, dup := m.index[i][cat]; dup {
				return eris.Errorf("predict: column %q lists %q twice", c.Column, cat)
			}
			m.index[i][cat] = j
		}
	}
	for _, c := range m.Numeric {
		if _, ok := probe.numeric(c.Column); !ok {
			return eris.Errorf("predict: unsupported numeric column %q", c.Column)
		}
	}

	if len(m.Layers) == 0 {
		return eris.New("predict: model has no layers")
	}
	in := m.NumFeatures()
	for li, l := range m.Layers {
		if len(l.Weights) == 0 || len(l.Weights) != len(l.Bias) {
			return eris.Errorf("predict: layer %d has %d weight rows and %d biases", li, len(l.Weights), len(l.Bias))
		}
		for _, row := range l.Weights {
			if len(row) != in {
				return eris.Errorf("predict: layer %d expects %d inputs, got a row of %d", li, in, len(row))
			}
		}
		switch l.Activation {
		case "", "linear", "relu":
		default:
			return eris.Errorf("predict: layer %d has unknown activation %q", li, l.Activation)
		}
		in = len(l.Weights)
	}
	if in != 1 {
		return eris.Errorf("predict: final layer has %d outputs, want 1", in)
	}
	return nil
}

// Encode builds the model's feature vector for in.
func (m *Model) Encode(in Input) ([]float64, error) {
	x := make([]float64, 0, m.NumFeatures())
	for i, c := range m.Categorical {
		v, _ := in.categorical(c.Column)
		pos, ok := m.index[i][v]
		if !ok {
			return nil, eris.Wrapf(ErrUnknownCategory, "%s=%q", c.Column, v)
		}
		for j := 1; j < len(c.Categories); j++ {
			if j == pos {
				x = append(x, 1)
			} else {
				x = append(x, 0)
			}
		}
	}
	for _, c := range m.Numeric {
		v, _ := in.numeric(c.Column)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, eris.Errorf("predict: %s is not finite", c.Column)
		}
		scale := c.Scale
		if scale == 0 {
			scale = 1
		}
		x = append(x, (v-c.Mean)/scale)
	}
	return x, nil
}

// Predict returns the estimated resale price in SGD.
func (m *Model) Predict(in Input) (float64, error) {
	x, err := m.Encode(in)
	if err != nil {
		return 0, err
	}
	for _, l := range m.Layers {
		out := make([]float64, len(l.Weights))
		for i, row := range l.Weights {
			sum := l.Bias[i]
			for j, w := range row {
				sum += w * x[j]
			}
			if l.Activation == "relu" && sum < 0 {
				sum = 0
			}
			out[i] = sum
		}
		x = out
	}
	return x[0], nil
}
