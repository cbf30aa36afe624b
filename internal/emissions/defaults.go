package emissions

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/freightledger/freightledger/internal/distance"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type defaultsFile struct {
	Factors []struct {
		Mode        string  `yaml:"mode"`
		VehicleType string  `yaml:"vehicle_type"`
		Factor      float64 `yaml:"factor"`
		Unit        string  `yaml:"unit"`
	} `yaml:"factors"`
}

// DefaultFactors returns the built-in factor catalog as inputs.
func DefaultFactors() ([]FactorInput, error) {
	return ParseFactors(defaultsYAML)
}

// ParseFactors decodes a factor catalog in the defaults.yaml format.
func ParseFactors(data []byte) ([]FactorInput, error) {
	var file defaultsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing factor catalog: %w", err)
	}

	inputs := make([]FactorInput, 0, len(file.Factors))
	for i, f := range file.Factors {
		if !distance.Mode(f.Mode).Valid() {
			return nil, fmt.Errorf("factor %d: %w", i, &distance.InvalidModeError{Mode: f.Mode})
		}
		inputs = append(inputs, FactorInput{
			Mode:        f.Mode,
			VehicleType: f.VehicleType,
			Value:       f.Factor,
			Unit:        f.Unit,
		})
	}
	return inputs, nil
}
