// Package metar holds the observation record type and the pure functions that
// validate and render it as a METAR report line. Nothing in this package
// touches storage, HTTP or mail delivery.
package metar

import (
	"fmt"
	"maps"
	"strconv"
)

// Field names of an observation record.
const (
	FieldObsType       = "obs_type"
	FieldStationID     = "station_id"
	FieldObsTime       = "obs_time"
	FieldWindDirection = "wind_direction"
	FieldWindSpeed     = "wind_speed"
	FieldVisibility    = "visibility"
	FieldTemperature   = "temperature"
	FieldDewPoint      = "dew_point"
	FieldQNH           = "qnh"
	FieldRemarks       = "remarks"
)

// RequiredFields lists the fields a record needs before it can be rendered,
// in declaration order. Validation results preserve this order.
var RequiredFields = []string{
	FieldObsType,
	FieldStationID,
	FieldObsTime,
	FieldWindDirection,
	FieldWindSpeed,
	FieldVisibility,
	FieldTemperature,
	FieldDewPoint,
	FieldQNH,
}

// Record is one submitted weather observation. It is immutable: the
// constructors copy their input and accessors never expose the backing map.
type Record struct {
	values map[string]string
}

// NewRecord builds a Record from string values.
func NewRecord(values map[string]string) Record {
	return Record{values: maps.Clone(values)}
}

// RecordFromAny builds a Record from loosely typed values such as a decoded
// JSON object. nil values are treated as absent; numbers and booleans are
// kept in their textual form so that a zero is still a present value.
func RecordFromAny(values map[string]any) Record {
	out := make(map[string]string, len(values))
	for k, v := range values {
		s, ok := stringify(v)
		if !ok {
			continue
		}
		out[k] = s
	}
	return Record{values: out}
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	case fmt.Stringer:
		return t.String(), true
	default:
		return fmt.Sprint(t), true
	}
}

// Get returns the value of field, or "" when it is absent.
func (r Record) Get(field string) string {
	return r.values[field]
}

// Has reports whether field is present with a non-empty value.
func (r Record) Has(field string) bool {
	return r.values[field] != ""
}

// Fields returns a copy of the record's values.
func (r Record) Fields() map[string]string {
	return maps.Clone(r.values)
}

// With returns a copy of r with field set to value.
func (r Record) With(field, value string) Record {
	values := maps.Clone(r.values)
	if values == nil {
		values = make(map[string]string, 1)
	}
	values[field] = value
	return Record{values: values}
}

// StationID is a shorthand for Get(FieldStationID).
func (r Record) StationID() string { return r.Get(FieldStationID) }
