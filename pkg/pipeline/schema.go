package pipeline

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"laptopprice/pkg/dataprep"
)

//go:embed schema.yaml
var defaultSchema []byte

// Column types accepted in a schema.
const (
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeString = "string"
)

// Schema describes the raw collection and the features derived from it.
type Schema struct {
	Columns             []map[string]string `yaml:"columns"`
	NumericalColumns    []string            `yaml:"numerical_columns"`
	CategoricalColumns  []string            `yaml:"categorical_columns"`
	DropColumns         []string            `yaml:"drop_columns"`
	NumFeatures         []string            `yaml:"num_features"`
	PassthroughFeatures []string            `yaml:"passthrough_features"`
	OneHotFeatures      []string            `yaml:"one_hot_features"`
	TargetColumn        string              `yaml:"target_column"`
}

// LoadSchema reads a schema file. An empty path yields the built-in schema.
func LoadSchema(path string) (*Schema, error) {
	raw := defaultSchema
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("pipeline: read schema: %w", err)
		}
		raw = b
	}
	return ParseSchema(raw)
}

func ParseSchema(raw []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("pipeline: parse schema: %w", err)
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ColumnNames returns the declared raw columns in order.
func (s *Schema) ColumnNames() []string {
	out := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		for name := range c {
			out = append(out, name)
		}
	}
	return out
}

// ColumnType returns the declared type of a raw column.
func (s *Schema) ColumnType(name string) (string, bool) {
	for _, c := range s.Columns {
		if t, ok := c[name]; ok {
			return t, true
		}
	}
	return "", false
}

// FeatureSpec is the preprocessor layout the schema asks for.
func (s *Schema) FeatureSpec(unknown string) dataprep.FeatureSpec {
	return dataprep.FeatureSpec{
		Scaled:      slices.Clone(s.NumFeatures),
		Categorical: slices.Clone(s.OneHotFeatures),
		Passthrough: slices.Clone(s.PassthroughFeatures),
		Unknown:     unknown,
	}
}

func (s *Schema) check() error {
	if len(s.Columns) == 0 {
		return errors.New("pipeline: schema declares no columns")
	}
	for i, c := range s.Columns {
		if len(c) != 1 {
			return fmt.Errorf("pipeline: schema column entry %d must have exactly one name", i)
		}
		for name, t := range c {
			switch t {
			case TypeInt, TypeFloat, TypeString:
			default:
				return fmt.Errorf("pipeline: column %s has unknown type %q", name, t)
			}
		}
	}
	names := s.ColumnNames()
	if !slices.Contains(names, s.TargetColumn) {
		return fmt.Errorf("pipeline: target column %q is not declared", s.TargetColumn)
	}
	if len(s.NumFeatures)+len(s.PassthroughFeatures)+len(s.OneHotFeatures) == 0 {
		return errors.New("pipeline: schema declares no features")
	}
	return nil
}
