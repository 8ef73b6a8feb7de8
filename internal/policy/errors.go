package policy

import "fmt"

// Configuration sources.
const (
	SourceApplication = "application"
	SourceCompany     = "company"
)

// ConfigFetchDegradedError reports a source that could not be loaded and was
// treated as absent during the merge.
type ConfigFetchDegradedError struct {
	Source string
	ID     int
	Err    error
}

func (e *ConfigFetchDegradedError) Error() string {
	return fmt.Sprintf("%s configuration %d unavailable: %v", e.Source, e.ID, e.Err)
}

func (e *ConfigFetchDegradedError) Unwrap() error { return e.Err }

