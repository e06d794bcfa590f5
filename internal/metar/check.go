package metar

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var obsTimeRE = regexp.MustCompile(`^(\d{2})(\d{2})(\d{2})Z?$`)

// QNH bounds in hPa accepted by Check.
const (
	MinQNH = 900
	MaxQNH = 1100
)

// MaxFutureObsTime is how far past now an observation time may lie.
const MaxFutureObsTime = 15 * time.Minute

// Check runs the plausibility rules used by the entry form against a record
// that already passed Validate. The observation day is read in the month of
// now; a zero now skips the future-time rule. It returns a *CheckError
// listing every problem, or nil.
func Check(r Record, now time.Time) error {
	var problems []Problem
	add := func(field, msg string) {
		problems = append(problems, Problem{Field: field, Message: msg})
	}

	if m := obsTimeRE.FindStringSubmatch(r.Get(FieldObsTime)); m == nil {
		add(FieldObsTime, "observation time must be DDHHMM or DDHHMMZ")
	} else {
		day, _ := strconv.Atoi(m[1])
		hour, _ := strconv.Atoi(m[2])
		minute, _ := strconv.Atoi(m[3])
		switch {
		case day < 1 || day > 31 || hour > 23 || minute > 59:
			add(FieldObsTime, "observation time is out of range")
		case minute%5 != 0:
			add(FieldObsTime, "METAR time must be to the nearest 5 minutes")
		case !now.IsZero():
			now = now.UTC()
			obs := time.Date(now.Year(), now.Month(), day, hour, minute, 0, 0, time.UTC)
			if obs.Sub(now).Round(time.Minute) > MaxFutureObsTime {
				add(FieldObsTime, "observation time is too far in the future (max 15 min ahead)")
			}
		}
	}

	dir, speed := r.Get(FieldWindDirection), r.Get(FieldWindSpeed)
	if speedNum, err := strconv.Atoi(speed); err == nil {
		if dir == "000" && speedNum != 0 {
			add(FieldWindSpeed, "wind speed must be 0 when direction is 000")
		}
		if speedNum == 0 && dir != "000" {
			add(FieldWindDirection, "wind direction must be 000 when speed is 0")
		}
	}

	if vis := r.Get(FieldVisibility); vis != "CAVOK" {
		n, err := strconv.Atoi(vis)
		if err != nil || n < 0 || n > 9999 {
			add(FieldVisibility, "visibility must be between 0000 and 9999 meters")
		}
	}

	temp, tErr := parseSignedTemp(r.Get(FieldTemperature))
	dew, dErr := parseSignedTemp(r.Get(FieldDewPoint))
	if tErr == nil && dErr == nil && temp < dew {
		add(FieldDewPoint, "temperature must not be less than dew point")
	}

	if qnh, err := strconv.Atoi(r.Get(FieldQNH)); err != nil || qnh < MinQNH || qnh > MaxQNH {
		add(FieldQNH, "QNH value must be between 900 and 1100 hPa")
	}

	if len(problems) == 0 {
		return nil
	}
	return &CheckError{Problems: problems}
}

// parseSignedTemp reads a METAR temperature where a leading "M" means minus.
func parseSignedTemp(s string) (int, error) {
	if rest, ok := strings.CutPrefix(s, "M"); ok {
		n, err := strconv.Atoi(rest)
		return -n, err
	}
	return strconv.Atoi(s)
}
