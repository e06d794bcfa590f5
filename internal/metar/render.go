package metar

import (
	"fmt"
	"strings"
)

// Render formats a valid record as a single METAR line:
//
//	{obs_type} {station_id} {obs_time} {wind_direction}{wind_speed}KT {visibility} {temperature}/{dew_point} Q{qnh} {remarks}
//
// Absent remarks render as nothing and the line is trimmed at both ends.
// Spacing inside the template is left exactly as is.
func Render(r Record) (string, error) {
	if v := Validate(r); !v.Valid() {
		return "", &InvalidInputError{Missing: v.Missing}
	}

	line := fmt.Sprintf("%s %s %s %s%sKT %s %s/%s Q%s %s",
		r.Get(FieldObsType),
		r.Get(FieldStationID),
		r.Get(FieldObsTime),
		r.Get(FieldWindDirection),
		r.Get(FieldWindSpeed),
		r.Get(FieldVisibility),
		r.Get(FieldTemperature),
		r.Get(FieldDewPoint),
		r.Get(FieldQNH),
		r.Get(FieldRemarks),
	)
	return strings.TrimSpace(line), nil
}
