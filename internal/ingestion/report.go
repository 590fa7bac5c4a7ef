// Package ingestion turns bulk CSV uploads into certificate records,
// keeping the record store and the integrity ledger consistent: every
// persisted row gets its digest anchored in the background.
package ingestion

// Summary are the batch counters. Total counts every data row in the file;
// Failed covers both validation and persistence failures.
type Summary struct {
	Total    int `json:"total"`
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed"`
}

// RowError describes one failed row. Row is 1-based over data rows, the
// header excluded; Data echoes the normalized fields so the caller can fix
// and resubmit without cross-referencing the original file.
type RowError struct {
	Row   int               `json:"row"`
	Data  map[string]string `json:"data,omitempty"`
	Error string            `json:"error"`
}

// Report is the outcome of one batch. Errors is capped; when rows beyond
// the cap fail they are still counted in Summary.Failed.
type Report struct {
	Summary Summary    `json:"summary"`
	Errors  []RowError `json:"errors,omitempty"`
}

func (r *Report) addError(maxErrors, rowNum int, data map[string]string, msg string) {
	r.Summary.Failed++
	if len(r.Errors) < maxErrors {
		r.Errors = append(r.Errors, RowError{Row: rowNum, Data: data, Error: msg})
	}
}
