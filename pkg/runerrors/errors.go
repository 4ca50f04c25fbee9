// pkg/runerrors/errors.go
package runerrors

import (
	"fmt"
	"strings"
)

// MissingDataError reports a required input file, or required columns of
// one, that is absent. It is fatal: the run aborts before any output is
// written.
type MissingDataError struct {
	Source  string
	Columns []string
	Err     error
}

func (e *MissingDataError) Error() string {
	if len(e.Columns) == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: required input is missing: %v", e.Source, e.Err)
		}
		return e.Source + ": required input is missing"
	}
	return fmt.Sprintf("%s: missing required column(s): %s", e.Source, strings.Join(e.Columns, ", "))
}

func (e *MissingDataError) Unwrap() error {
	return e.Err
}

// UnresolvedNameError reports a lecturer whose first name has no usable
// gender label. Non-fatal: the row is excluded and counted.
type UnresolvedNameError struct {
	Name   string
	Reason string
}

func (e *UnresolvedNameError) Error() string {
	return fmt.Sprintf("unresolved name %q: %s", e.Name, e.Reason)
}

// LookupUnavailableError reports that the gender inference source could not
// answer for one name. Non-fatal: the name is labeled unknown.
type LookupUnavailableError struct {
	Name     string
	Attempts int
	Err      error
}

func (e *LookupUnavailableError) Error() string {
	return fmt.Sprintf("gender lookup unavailable for %q after %d attempt(s): %v", e.Name, e.Attempts, e.Err)
}

func (e *LookupUnavailableError) Unwrap() error {
	return e.Err
}

// ModelFitError reports a regression that could not be estimated. Fatal for
// that model only.
type ModelFitError struct {
	Model  string
	Reason string
}

func (e *ModelFitError) Error() string {
	if e.Model == "" {
		return "model fit failed: " + e.Reason
	}
	return fmt.Sprintf("model %s fit failed: %s", e.Model, e.Reason)
}
