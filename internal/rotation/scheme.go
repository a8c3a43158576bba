package rotation

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Granularity is the size of a retention time bucket.
type Granularity int

// Granularities ordered by increasing span.
const (
	Hourly Granularity = iota
	Daily
	Weekly
	Monthly
	Yearly
)

// Granularities lists every supported granularity from smallest to largest.
var Granularities = []Granularity{Hourly, Daily, Weekly, Monthly, Yearly}

var granularityNames = map[Granularity]string{
	Hourly:  "hourly",
	Daily:   "daily",
	Weekly:  "weekly",
	Monthly: "monthly",
	Yearly:  "yearly",
}

func (g Granularity) String() string {
	if name, ok := granularityNames[g]; ok {
		return name
	}
	return fmt.Sprintf("granularity(%d)", int(g))
}

// ParseGranularity maps a name such as "daily" to its Granularity.
func ParseGranularity(name string) (Granularity, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for g, n := range granularityNames {
		if n == normalized {
			return g, nil
		}
	}
	return 0, newConfigurationError("rotation scheme", name, "unknown granularity (expected hourly, daily, weekly, monthly or yearly)")
}

// retentionAlways is the keyword for an unlimited retention.
const retentionAlways = "always"

// Retention is the number of periods to keep for one granularity.
type Retention struct {
	Count     int
	Unlimited bool
}

// Always returns an unlimited retention.
func Always() Retention {
	return Retention{Unlimited: true}
}

// Count returns a retention of n periods.
func Count(n int) Retention {
	return Retention{Count: n}
}

func (r Retention) String() string {
	if r.Unlimited {
		return retentionAlways
	}
	return strconv.Itoa(r.Count)
}

// allows reports whether the period at zero-based position rank may be kept.
func (r Retention) allows(rank int) bool {
	return r.Unlimited || rank < r.Count
}

// ParseRetention parses an integer count or the keyword "always".
func ParseRetention(value string) (Retention, error) {
	trimmed := strings.TrimSpace(value)
	if strings.EqualFold(trimmed, retentionAlways) {
		return Always(), nil
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return Retention{}, newConfigurationError("retention", value, "expected a non-negative integer or 'always'")
	}
	if n < 0 {
		return Retention{}, newConfigurationError("retention", value, "count must not be negative")
	}
	return Count(n), nil
}

// Scheme maps each configured granularity to its retention. Granularities that
// are absent retain nothing.
type Scheme struct {
	retentions map[Granularity]Retention
}

// NewScheme builds a scheme from granularity names to retention strings, as
// found in a configuration file section or on the command line.
func NewScheme(values map[string]string) (Scheme, error) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	s := Scheme{}
	for _, name := range names {
		raw := values[name]
		g, err := ParseGranularity(name)
		if err != nil {
			return Scheme{}, err
		}
		r, err := ParseRetention(raw)
		if err != nil {
			var cfgErr *ConfigurationError
			if errors.As(err, &cfgErr) {
				cfgErr.Field = g.String()
			}
			return Scheme{}, err
		}
		s = s.With(g, r)
	}
	return s, nil
}

// With returns a copy of s with g set to r.
func (s Scheme) With(g Granularity, r Retention) Scheme {
	out := Scheme{retentions: make(map[Granularity]Retention, len(s.retentions)+1)}
	for k, v := range s.retentions {
		out.retentions[k] = v
	}
	out.retentions[g] = r
	return out
}

// Merge returns a copy of s overridden by every granularity set in other.
func (s Scheme) Merge(other Scheme) Scheme {
	out := s
	for _, g := range other.Granularities() {
		out = out.With(g, other.retentions[g])
	}
	return out
}

// Retention returns the configured retention for g.
func (s Scheme) Retention(g Granularity) (Retention, bool) {
	r, ok := s.retentions[g]
	return r, ok
}

// Granularities returns the configured granularities, smallest first.
func (s Scheme) Granularities() []Granularity {
	out := make([]Granularity, 0, len(s.retentions))
	for g := range s.retentions {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Empty reports whether no granularity is configured.
func (s Scheme) Empty() bool {
	return len(s.retentions) == 0
}

func (s Scheme) String() string {
	if s.Empty() {
		return "(empty)"
	}
	parts := make([]string, 0, len(s.retentions))
	for _, g := range s.Granularities() {
		parts = append(parts, g.String()+"="+s.retentions[g].String())
	}
	return strings.Join(parts, " ")
}
