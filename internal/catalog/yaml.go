package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlSchema is the on-disk YAML layout:
//
//	tables:
//	  characters: [id, name, house_id]
//	  houses:
//	    - id
//	    - name
type yamlSchema struct {
	Tables yaml.Node `yaml:"tables"`
}

// LoadYAML loads a schema from a YAML file.
func LoadYAML(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	schema, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return schema, nil
}

// ParseYAML parses YAML schema bytes. Table order follows the document;
// a mapping node is walked directly so column order is preserved.
func ParseYAML(data []byte) (*Schema, error) {
	var doc yamlSchema
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if doc.Tables.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: 'tables' must be a mapping of table name to column list", doc.Tables.Line)
	}

	schema := NewSchema()
	for i := 0; i+1 < len(doc.Tables.Content); i += 2 {
		keyNode, colsNode := doc.Tables.Content[i], doc.Tables.Content[i+1]

		var columns []string
		if err := colsNode.Decode(&columns); err != nil {
			return nil, fmt.Errorf("line %d: table %q: columns must be a list of names: %w", colsNode.Line, keyNode.Value, err)
		}
		if len(columns) == 0 {
			return nil, fmt.Errorf("line %d: table %q must declare at least one column", colsNode.Line, keyNode.Value)
		}

		table := &Table{Name: keyNode.Value}
		for _, c := range columns {
			table.Columns = append(table.Columns, Column{Name: c})
		}
		if err := schema.Add(table); err != nil {
			return nil, fmt.Errorf("line %d: %w", keyNode.Line, err)
		}
	}
	return schema, nil
}
