package rotation

import "sort"

// Select applies scheme to the classified buckets and returns one decision per
// candidate, in plan order.
//
// For every configured granularity the representatives of the newest N buckets
// are kept, where N is the granularity's retention. A candidate survives if any
// granularity keeps it. The newest timestamped candidate and every candidate
// without a timestamp are always kept. With an empty scheme nothing is
// discarded.
func Select(candidates []Candidate, buckets map[Granularity][]Bucket, scheme Scheme) []Decision {
	reasons := make(map[int][]string, len(candidates))

	for _, g := range scheme.Granularities() {
		retention, _ := scheme.Retention(g)
		for rank, b := range buckets[g] {
			if !retention.allows(rank) {
				break
			}
			idx := b.Representative.Index
			reasons[idx] = append(reasons[idx], b.Period.String())
		}
	}

	if latest, ok := mostRecent(candidates); ok {
		reasons[latest.Index] = append([]string{ReasonMostRecent}, reasons[latest.Index]...)
	}

	decisions := make([]Decision, 0, len(candidates))
	for _, c := range orderForPlan(candidates) {
		d := Decision{Name: c.Name, Timestamp: c.Timestamp, HasTimestamp: c.HasTimestamp}
		switch {
		case !c.HasTimestamp:
			d.Action, d.Reasons = Keep, []string{ReasonNoTimestamp}
		case scheme.Empty():
			d.Action, d.Reasons = Keep, append([]string{ReasonNoScheme}, reasons[c.Index]...)
		case len(reasons[c.Index]) > 0:
			d.Action, d.Reasons = Keep, reasons[c.Index]
		default:
			d.Action, d.Reasons = Discard, []string{ReasonNoCriterion}
		}
		decisions = append(decisions, d)
	}
	return decisions
}

// orderForPlan sorts timestamped candidates oldest first, ties by listing
// order, and appends the rest in listing order.
func orderForPlan(candidates []Candidate) []Candidate {
	var dated, undated []Candidate
	for _, c := range candidates {
		if c.HasTimestamp {
			dated = append(dated, c)
		} else {
			undated = append(undated, c)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		if !dated[i].Timestamp.Equal(dated[j].Timestamp) {
			return dated[i].Timestamp.Before(dated[j].Timestamp)
		}
		return dated[i].Index < dated[j].Index
	})
	sort.SliceStable(undated, func(i, j int) bool { return undated[i].Index < undated[j].Index })
	return append(dated, undated...)
}
