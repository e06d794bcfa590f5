package metar

// Validation is the outcome of Validate. Missing is empty for a valid record.
type Validation struct {
	Missing []string
}

// Valid reports whether every required field was present.
func (v Validation) Valid() bool { return len(v.Missing) == 0 }

// Err returns a *ValidationError for an invalid outcome and nil otherwise.
func (v Validation) Err() error {
	if v.Valid() {
		return nil
	}
	return &ValidationError{Missing: v.Missing}
}

// Validate checks r against RequiredFields.
func Validate(r Record) Validation {
	var missing []string
	for _, f := range RequiredFields {
		if !r.Has(f) {
			missing = append(missing, f)
		}
	}
	return Validation{Missing: missing}
}
