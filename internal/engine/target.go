package engine

import (
	"time"

	"github.com/bit2swaz/rotate-backups/internal/rotation"
)

// Target is one location to rotate with its raw settings. Values are
// validated when the target runs so a bad setting fails only that target.
type Target struct {
	Location string
	// Retention maps granularity names to counts or "always".
	Retention   map[string]string
	Include     []string
	Exclude     []string
	ExcludeFile string
	DryRun      bool
}

// DeleteFailure records a discarded backup that could not be removed.
type DeleteFailure struct {
	Name string
	Err  error
}

// TargetResult is the outcome of rotating one target.
type TargetResult struct {
	Location string
	RunID    string
	Plan     *rotation.Plan
	Excluded []rotation.Exclusion
	Deleted  []string
	Failures []DeleteFailure
	// Err is set when the target could not be planned at all.
	Err     error
	Elapsed time.Duration
}

// Failed reports whether the target hit a fatal error or any delete failed.
func (r TargetResult) Failed() bool {
	return r.Err != nil || len(r.Failures) > 0
}

// RunSummary collects the results of one invocation, in target order.
type RunSummary struct {
	RunID   string
	Results []TargetResult
}

// Failed reports whether any target failed.
func (s RunSummary) Failed() bool {
	for _, r := range s.Results {
		if r.Failed() {
			return true
		}
	}
	return false
}
