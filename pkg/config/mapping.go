package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/apperrors"
)

// ColumnMappingEntry is one manual source→target column pair.
type ColumnMappingEntry struct {
	Source string
	Target string
}

// ColumnMappingList keeps column_mapping entries in file order.
type ColumnMappingList []ColumnMappingEntry

// UnmarshalYAML reads a mapping node, preserving key order.
func (l *ColumnMappingList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: column_mapping must be a mapping of source column to target column", node.Line)
	}
	entries := make(ColumnMappingList, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if key.Kind != yaml.ScalarNode || value.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: column_mapping entries must be column names", key.Line)
		}
		entries = append(entries, ColumnMappingEntry{Source: key.Value, Target: value.Value})
	}
	*l = entries
	return nil
}

// MappingFile is the --mapping document. It is YAML, and JSON files load unchanged.
//
//	{
//	  "source1": "products_v1.csv",
//	  "source2": "products_v2.csv",
//	  "column_mapping": {"id": "product_id", "price": "cost"},
//	  "id_columns": ["id"]
//	}
type MappingFile struct {
	Source1       string            `yaml:"source1"`
	Source2       string            `yaml:"source2"`
	ColumnMapping ColumnMappingList `yaml:"column_mapping"`

	IDColumns      []string `yaml:"id_columns"`
	CompareColumns []string `yaml:"compare_columns"`
	ExcludeColumns []string `yaml:"exclude_columns"`

	// Optional overrides; nil leaves the configured value in place.
	CaseInsensitive  *bool    `yaml:"case_insensitive"`
	TrimWhitespace   *bool    `yaml:"trim_whitespace"`
	MappingThreshold *float64 `yaml:"mapping_threshold"`
}

// mappingFileKeys are the keys every mapping file must carry.
var mappingFileKeys = []string{"source1", "source2", "column_mapping"}

// LoadMappingFile reads and validates a mapping file.
func LoadMappingFile(path string) (*MappingFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}
	return ParseMappingFile(data)
}

// ParseMappingFile decodes a mapping document and checks its required keys.
func ParseMappingFile(data []byte) (*MappingFile, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: mapping file: %w", apperrors.ErrInvalidConfig, err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: mapping file must be an object", apperrors.ErrInvalidConfig)
	}

	present := make(map[string]bool)
	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		present[root.Content[i].Value] = true
	}
	var missing []string
	for _, k := range mappingFileKeys {
		if !present[k] {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: mapping file must contain %q, missing %q",
			apperrors.ErrInvalidConfig, mappingFileKeys, missing)
	}

	var mf MappingFile
	if err := root.Decode(&mf); err != nil {
		return nil, fmt.Errorf("%w: mapping file: %w", apperrors.ErrInvalidConfig, err)
	}
	if mf.MappingThreshold != nil && (*mf.MappingThreshold < 0 || *mf.MappingThreshold > 1) {
		return nil, fmt.Errorf("%w: mapping_threshold must be between 0 and 1", apperrors.ErrInvalidConfig)
	}
	return &mf, nil
}
