package scoring

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LinearModel is an ordinary least squares regression exported from the
// training notebook. The artifact is YAML; JSON exports decode unchanged.
//
//	name: mmo-sales
//	version: "2024-06"
//	target: Sales
//	intercept: 12.5
//	features: [Marketplace_MKT_A, Marketplace_MKT_B, Spend]
//	coefficients: [3.1, -1.2, 1.4]
//	categories:
//	  Marketplace: [MKT_A, MKT_B]
type LinearModel struct {
	Name         string              `yaml:"name" json:"name"`
	Version      string              `yaml:"version" json:"version"`
	Target       string              `yaml:"target" json:"target"`
	Intercept    float64             `yaml:"intercept" json:"intercept"`
	Features     []string            `yaml:"features" json:"features"`
	Coefficients []float64           `yaml:"coefficients" json:"coefficients"`
	Vocab        map[string][]string `yaml:"categories,omitempty" json:"categories,omitempty"`
}

// LoadLinearModel reads and validates a model artifact from path.
func LoadLinearModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	return DecodeLinearModel(data)
}

// DecodeLinearModel parses and validates artifact bytes.
func DecodeLinearModel(data []byte) (*LinearModel, error) {
	var m LinearModel
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: decode artifact: %w", ErrModelLoad, err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *LinearModel) validate() error {
	if len(m.Features) == 0 {
		return fmt.Errorf("%w: artifact has no features", ErrModelLoad)
	}
	if len(m.Coefficients) != len(m.Features) {
		return fmt.Errorf("%w: %d coefficients for %d features", ErrModelLoad, len(m.Coefficients), len(m.Features))
	}
	seen := make(map[string]bool, len(m.Features))
	for _, f := range m.Features {
		if seen[f] {
			return fmt.Errorf("%w: feature %q listed twice", ErrModelLoad, f)
		}
		seen[f] = true
	}
	return nil
}

// FeatureNames implements Schema.
func (m *LinearModel) FeatureNames() []string { return append([]string(nil), m.Features...) }

// ModelVersion implements Versioned.
func (m *LinearModel) ModelVersion() string {
	if m.Name == "" {
		return m.Version
	}
	return m.Name + "@" + m.Version
}

// Categories implements Vocabulary.
func (m *LinearModel) Categories() map[string][]string { return m.Vocab }

// Predict computes intercept + coefficients·row for every row. Columns must
// already be in FeatureNames order.
func (m *LinearModel) Predict(ctx context.Context, f Features) ([]float64, error) {
	if len(f.Names) != len(m.Features) {
		return nil, fmt.Errorf("%w: got %d features, model expects %d", ErrSchemaMismatch, len(f.Names), len(m.Features))
	}
	for i, n := range f.Names {
		if n != m.Features[i] {
			return nil, fmt.Errorf("%w: feature %d is %q, model expects %q", ErrSchemaMismatch, i, n, m.Features[i])
		}
	}
	out := make([]float64, len(f.Rows))
	for r, row := range f.Rows {
		if r%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		y := m.Intercept
		for i, w := range m.Coefficients {
			y += w * row[i]
		}
		out[r] = y
	}
	return out, nil
}
