package metar

import (
	"fmt"
	"strings"
)

// ValidationError is returned when a record is missing required fields.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// InvalidInputError is returned by Render when it is handed a record that
// did not pass validation.
type InvalidInputError struct {
	Missing []string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("cannot render record: missing required fields: %s", strings.Join(e.Missing, ", "))
}

// CheckError collects the plausibility problems found by Check.
type CheckError struct {
	Problems []Problem
}

// Problem is a single plausibility failure for one field.
type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *CheckError) Error() string {
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, p.Message)
	}
	return strings.Join(msgs, "; ")
}

// LineError is returned by ParseLine for a line that does not have the
// layout Render produces. Fields names the required fields carried by the
// malformed or absent groups.
type LineError struct {
	Line   string
	Fields []string
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("parsing metar line %q: %s", e.Line, e.Reason)
}
