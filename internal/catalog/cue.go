package catalog

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// SchemaError represents an invalid schema file, with the CUE source
// position when one is available.
type SchemaError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *SchemaError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadCUE loads a schema from a CUE file or a directory of CUE files.
//
// Tables are declared under the top-level "table" field, one struct per
// table whose fields are the columns:
//
//	table: characters: {
//		id:       int
//		name:     string
//		house_id: int | null
//	}
func LoadCUE(path string) (*Schema, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("schema path: %w", err)
	}

	ctx := cuecontext.New()

	var value cue.Value
	if info.IsDir() {
		instances := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(instances) == 0 {
			return nil, fmt.Errorf("no CUE instances loaded from %s", path)
		}
		inst := instances[0]
		if inst.Err != nil {
			return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
		}
		value = ctx.BuildInstance(inst)
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading schema: %w", err)
		}
		value = ctx.CompileBytes(data, cue.Filename(path))
	}

	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileCUE(value)
}

// ParseCUE compiles CUE source text into a Schema.
func ParseCUE(src string) (*Schema, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(src)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileCUE(value)
}

// CompileCUE extracts the tables declared under "table" in v.
func CompileCUE(v cue.Value) (*Schema, error) {
	tablesVal := v.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return nil, &SchemaError{
			Field:   "table",
			Message: "schema declares no tables",
			Pos:     v.Pos(),
		}
	}

	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	schema := NewSchema()
	for iter.Next() {
		table, err := compileTable(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		if err := schema.Add(table); err != nil {
			return nil, &SchemaError{Field: "table." + iter.Label(), Message: err.Error(), Pos: iter.Value().Pos()}
		}
	}
	return schema, nil
}

func compileTable(name string, v cue.Value) (*Table, error) {
	fieldIter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	table := &Table{Name: name}
	for fieldIter.Next() {
		typ, err := extractTypeName(fieldIter.Value())
		if err != nil {
			return nil, err
		}
		table.Columns = append(table.Columns, Column{Name: fieldIter.Label(), Type: typ})
	}
	if len(table.Columns) == 0 {
		return nil, &SchemaError{
			Field:   "table." + name,
			Message: "table must declare at least one column",
			Pos:     v.Pos(),
		}
	}
	return table, nil
}

// extractTypeName converts a CUE column constraint to a type name.
// A disjunction with null (int | null) reports the non-null kind.
func extractTypeName(v cue.Value) (string, error) {
	kind := v.IncompleteKind() &^ cue.NullKind
	switch kind {
	case cue.StringKind:
		return "string", nil
	case cue.IntKind:
		return "int", nil
	case cue.FloatKind, cue.NumberKind:
		return "float", nil
	case cue.BoolKind:
		return "bool", nil
	case cue.BytesKind:
		return "bytes", nil
	default:
		return "", &SchemaError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported column kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &SchemaError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
