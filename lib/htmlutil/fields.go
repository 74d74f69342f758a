package htmlutil

import (
	"fmt"
	"strings"
)

// Fields runs extractions one field at a time, a panic in one extraction is
// recorded against that field and the others still run.
type Fields struct {
	failures []string
}

// Extract runs fn, recovering from any panic it raises.
func (f *Fields) Extract(name string, fn func()) {
	defer func() {
		r := recover()
		if r != nil {
			f.failures = append(f.failures, fmt.Sprintf("%s: %v", name, r))
		}
	}()
	fn()
}

// Fail records a failure without a panic.
func (f *Fields) Fail(name string, reason string) {
	f.failures = append(f.failures, fmt.Sprintf("%s: %s", name, reason))
}

// Failures is the list of fields that could not be extracted.
func (f *Fields) Failures() []string {
	return f.failures
}

// Err summarizes the failures, it returns nil when there were none.
func (f *Fields) Err() error {
	if len(f.failures) == 0 {
		return nil
	}
	return fmt.Errorf("failed to extract %s", strings.Join(f.failures, "; "))
}
