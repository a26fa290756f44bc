package config

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ironsheep/handwriting-tools-mcp/internal/features"
)

// Threshold file names inside the models directory.
const (
	PressureFile = "pressure_model.json"
	SpacingFile  = "spacing_model.json"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Thresholds calibrate the pressure and spacing heuristics.
type Thresholds struct {
	Pressure features.PressureThresholds
	Spacing  features.SpacingThresholds
}

// DefaultThresholds are written by WriteDefaultThresholds.
var DefaultThresholds = Thresholds{
	Pressure: features.PressureThresholds{Low: 110, High: 190},
	Spacing:  features.SpacingThresholds{VeryEven: 5, SlightlyEven: 12, Uneven: 25},
}

// Validate checks threshold ordering.
func (t Thresholds) Validate() error {
	if !(t.Pressure.Low < t.Pressure.High) {
		return fmt.Errorf("pressure low_threshold %v must be below high_threshold %v", t.Pressure.Low, t.Pressure.High)
	}
	s := t.Spacing
	if !(s.VeryEven < s.SlightlyEven && s.SlightlyEven < s.Uneven) {
		return fmt.Errorf("spacing thresholds must ascend: %v, %v, %v", s.VeryEven, s.SlightlyEven, s.Uneven)
	}
	return nil
}

// LoadThresholds reads both threshold files from dir, validates them against
// their schemas, and checks ordering.
func LoadThresholds(dir string) (Thresholds, error) {
	var t Thresholds
	if err := loadValidated(filepath.Join(dir, PressureFile), PressureFile, &t.Pressure); err != nil {
		return Thresholds{}, err
	}
	if err := loadValidated(filepath.Join(dir, SpacingFile), SpacingFile, &t.Spacing); err != nil {
		return Thresholds{}, err
	}
	if err := t.Validate(); err != nil {
		return Thresholds{}, err
	}
	return t, nil
}

// WriteDefaultThresholds writes DefaultThresholds to dir. Existing files are
// left untouched unless overwrite is set.
func WriteDefaultThresholds(dir string, overwrite bool) error {
	files := []struct {
		name string
		v    interface{}
	}{
		{PressureFile, DefaultThresholds.Pressure},
		{SpacingFile, DefaultThresholds.Spacing},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if _, err := os.Stat(path); err == nil && !overwrite {
			continue
		}
		data, err := json.MarshalIndent(f.v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", f.name, err)
		}
		if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.name, err)
		}
	}
	return nil
}

func loadValidated(path, schemaName string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read thresholds: %w", err)
	}

	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", path, err)
	}

	schema, err := compileSchema(schemaName)
	if err != nil {
		return err
	}
	if err := schema.Validate(parsed); err != nil {
		return fmt.Errorf("%s failed schema validation: %w", path, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func compileSchema(name string) (*jsonschema.Schema, error) {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, fmt.Errorf("missing schema %s: %w", name, err)
	}
	var def any
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", name, err)
	}

	c := jsonschema.NewCompiler()
	url := "schema://" + name
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	return compiled, nil
}
