package metar

import (
	"errors"
	"fmt"
	"strings"
)

// lineGroups maps each space-separated group of a rendered line to the
// fields it carries.
var lineGroups = [][]string{
	{FieldObsType},
	{FieldStationID},
	{FieldObsTime},
	{FieldWindDirection, FieldWindSpeed},
	{FieldVisibility},
	{FieldTemperature, FieldDewPoint},
	{FieldQNH},
}

// ParseLine splits a line produced by Render back into a Record. The wind
// group is split after its first three characters (e.g. "090" or "VRB").
// Anything after the QNH group is returned as remarks, verbatim. A line
// without that layout yields a *LineError.
func ParseLine(line string) (Record, error) {
	parts := strings.SplitN(strings.TrimSpace(line), " ", len(lineGroups)+1)
	if len(parts) < len(lineGroups) {
		var fields []string
		for _, g := range lineGroups[len(parts):] {
			fields = append(fields, g...)
		}
		return Record{}, &LineError{
			Line:   line,
			Fields: fields,
			Reason: fmt.Sprintf("expected at least %d groups, got %d", len(lineGroups), len(parts)),
		}
	}

	wind, ok := strings.CutSuffix(parts[3], "KT")
	if !ok || len(wind) < 4 {
		return Record{}, &LineError{Line: line, Fields: lineGroups[3], Reason: fmt.Sprintf("malformed wind group %q", parts[3])}
	}

	temp, dew, ok := strings.Cut(parts[5], "/")
	if !ok {
		return Record{}, &LineError{Line: line, Fields: lineGroups[5], Reason: fmt.Sprintf("malformed temperature group %q", parts[5])}
	}

	qnh, ok := strings.CutPrefix(parts[6], "Q")
	if !ok {
		return Record{}, &LineError{Line: line, Fields: lineGroups[6], Reason: fmt.Sprintf("malformed pressure group %q", parts[6])}
	}

	values := map[string]string{
		FieldObsType:       parts[0],
		FieldStationID:     parts[1],
		FieldObsTime:       parts[2],
		FieldWindDirection: wind[:3],
		FieldWindSpeed:     wind[3:],
		FieldVisibility:    parts[4],
		FieldTemperature:   temp,
		FieldDewPoint:      dew,
		FieldQNH:           qnh,
	}
	if len(parts) == len(lineGroups)+1 {
		values[FieldRemarks] = parts[len(lineGroups)]
	}
	return NewRecord(values), nil
}

// LineMissing returns the required fields a pre-rendered line lacks, either
// because their group is malformed or because the group is empty, as in
// "28/". It returns nil for a well-formed line.
func LineMissing(line string) []string {
	r, err := ParseLine(line)
	if err != nil {
		var le *LineError
		if errors.As(err, &le) {
			return le.Fields
		}
		return RequiredFields
	}
	return Validate(r).Missing
}
