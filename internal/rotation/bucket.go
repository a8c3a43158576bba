package rotation

import (
	"fmt"
	"sort"
	"time"
)

// Candidate is a named backup considered for rotation.
type Candidate struct {
	Name string
	// Index is the position of Name in the listing, used to break ties.
	Index        int
	Timestamp    time.Time
	HasTimestamp bool
}

// NewCandidate builds a candidate, extracting its timestamp from name.
func NewCandidate(name string, index int) Candidate {
	ts, ok := ExtractTimestamp(name)
	return Candidate{Name: name, Index: index, Timestamp: ts, HasTimestamp: ok}
}

// newerThan orders candidates by timestamp, earlier listing position first on ties.
func (c Candidate) newerThan(other Candidate) bool {
	if !c.Timestamp.Equal(other.Timestamp) {
		return c.Timestamp.After(other.Timestamp)
	}
	return c.Index < other.Index
}

// Period is one calendar-aligned span of a granularity.
type Period struct {
	Granularity Granularity
	Key         string
	Start       time.Time
}

// PeriodOf returns the period of granularity g that contains t. Weeks are ISO
// weeks starting on Monday and are keyed by ISO year.
func PeriodOf(g Granularity, t time.Time) Period {
	t = t.UTC()
	y, m, d := t.Date()
	switch g {
	case Hourly:
		return Period{g, fmt.Sprintf("%04d-%02d-%02dT%02d", y, m, d, t.Hour()), time.Date(y, m, d, t.Hour(), 0, 0, 0, time.UTC)}
	case Daily:
		return Period{g, fmt.Sprintf("%04d-%02d-%02d", y, m, d), time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
	case Weekly:
		isoYear, isoWeek := t.ISOWeek()
		offset := (int(t.Weekday()) + 6) % 7
		return Period{g, fmt.Sprintf("%04d-W%02d", isoYear, isoWeek), time.Date(y, m, d-offset, 0, 0, 0, 0, time.UTC)}
	case Monthly:
		return Period{g, fmt.Sprintf("%04d-%02d", y, m), time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)}
	case Yearly:
		return Period{g, fmt.Sprintf("%04d", y), time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)}
	default:
		panic(fmt.Sprintf("rotation: unsupported granularity %d", int(g)))
	}
}

func (p Period) String() string {
	return p.Granularity.String() + " " + p.Key
}

// Bucket holds the candidates that fall into one period.
type Bucket struct {
	Period         Period
	Representative Candidate
	Members        []Candidate
}

// Classify groups the timestamped candidates into buckets for each of the given
// granularities. Buckets are ordered newest period first and each one's
// representative is its most recent member. Candidates without a timestamp are
// ignored.
func Classify(candidates []Candidate, granularities []Granularity) map[Granularity][]Bucket {
	result := make(map[Granularity][]Bucket, len(granularities))
	for _, g := range granularities {
		index := make(map[string]int)
		var buckets []Bucket
		for _, c := range candidates {
			if !c.HasTimestamp {
				continue
			}
			period := PeriodOf(g, c.Timestamp)
			i, ok := index[period.Key]
			if !ok {
				index[period.Key] = len(buckets)
				buckets = append(buckets, Bucket{Period: period, Representative: c, Members: []Candidate{c}})
				continue
			}
			b := &buckets[i]
			b.Members = append(b.Members, c)
			if c.newerThan(b.Representative) {
				b.Representative = c
			}
		}
		sort.Slice(buckets, func(i, j int) bool {
			return buckets[i].Period.Start.After(buckets[j].Period.Start)
		})
		result[g] = buckets
	}
	return result
}

// mostRecent returns the newest timestamped candidate.
func mostRecent(candidates []Candidate) (Candidate, bool) {
	var (
		latest Candidate
		found  bool
	)
	for _, c := range candidates {
		if !c.HasTimestamp {
			continue
		}
		if !found || c.newerThan(latest) {
			latest = c
			found = true
		}
	}
	return latest, found
}
