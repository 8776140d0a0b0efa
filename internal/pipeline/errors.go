package pipeline

import "fmt"

// SchemaError means a required column is missing from the whole export.
type SchemaError struct {
	Field  string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("could not read '%s' column: expected column name '%s', check the export and run again", e.Field, e.Column)
}
