// Package rotation decides which backups in a location to keep and which to
// discard under a bucketed retention scheme.
//
// Timestamps are taken from backup names only, never from storage metadata.
// Names are filtered by include and exclude patterns, timestamped, grouped
// into hourly, daily, weekly, monthly and yearly periods, and the newest
// backup of each retained period is kept. Everything here is pure: callers
// list and delete.
package rotation

import (
	"sort"

	"github.com/facette/natsort"
)

// Options configures a Rotator.
type Options struct {
	Scheme  Scheme
	Include []string
	Exclude []string
	// IgnoreRules are .gitignore-style lines applied in addition to Exclude.
	IgnoreRules []string
	DryRun      bool
}

// Exclusion records a name that the filter removed from rotation.
type Exclusion struct {
	Name   string
	Reason string
}

// Rotator computes rotation plans for one target.
type Rotator struct {
	scheme Scheme
	filter *Filter
	dryRun bool
}

// NewRotator validates opts. Malformed patterns yield a *PatternError.
func NewRotator(opts Options) (*Rotator, error) {
	filter, err := NewFilter(opts.Include, opts.Exclude, opts.IgnoreRules)
	if err != nil {
		return nil, err
	}
	return &Rotator{scheme: opts.Scheme, filter: filter, dryRun: opts.DryRun}, nil
}

// Scheme returns the rotation scheme in use.
func (r *Rotator) Scheme() Scheme {
	return r.scheme
}

// Plan computes the decisions for the names listed at location. Names removed
// by the filter do not appear in the plan and are returned separately. The
// same input always yields the same plan.
func (r *Rotator) Plan(location string, names []string) (*Plan, []Exclusion) {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.SliceStable(sorted, func(i, j int) bool {
		return naturalLess(sorted[i], sorted[j])
	})

	var (
		candidates []Candidate
		excluded   []Exclusion
	)
	for _, name := range sorted {
		if ok, reason := r.filter.Allows(name); !ok {
			excluded = append(excluded, Exclusion{Name: name, Reason: reason})
			continue
		}
		candidates = append(candidates, NewCandidate(name, len(candidates)))
	}

	buckets := Classify(candidates, r.scheme.Granularities())
	return &Plan{
		Location:  location,
		DryRun:    r.dryRun,
		Decisions: Select(candidates, buckets, r.scheme),
	}, excluded
}

// naturalLess orders names naturally ("b2" before "b10"). natsort.Compare is
// not antisymmetric for names like "a1" and "a01", so pairs it cannot order
// strictly fall back to byte order.
func naturalLess(a, b string) bool {
	ab, ba := natsort.Compare(a, b), natsort.Compare(b, a)
	if ab != ba {
		return ab
	}
	return a < b
}
