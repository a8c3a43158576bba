package rotation

import (
	"strings"
	"time"
)

// Action is the outcome of rotation for one candidate.
type Action int

const (
	Keep Action = iota
	Discard
)

func (a Action) String() string {
	if a == Discard {
		return "discard"
	}
	return "keep"
}

// MarshalText renders the action for JSON and YAML reports.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Reasons attached to decisions that are not tied to a period.
const (
	ReasonMostRecent  = "most recent backup"
	ReasonNoTimestamp = "no timestamp found"
	ReasonNoScheme    = "no rotation scheme configured"
	ReasonNoCriterion = "no matching criterion"
)

// Decision is the verdict for one candidate.
type Decision struct {
	Name         string
	Timestamp    time.Time
	HasTimestamp bool
	Action       Action
	Reasons      []string
}

// Reason joins the decision's reasons for display.
func (d Decision) Reason() string {
	return strings.Join(d.Reasons, ", ")
}

// Plan is the ordered set of decisions for one location. Timestamped decisions
// come first, oldest to newest, followed by names without a timestamp in
// listing order.
type Plan struct {
	Location  string
	DryRun    bool
	Decisions []Decision
}

// Kept returns the decisions marked Keep.
func (p *Plan) Kept() []Decision {
	return p.filter(Keep)
}

// Discarded returns the decisions marked Discard.
func (p *Plan) Discarded() []Decision {
	return p.filter(Discard)
}

// Verb describes what happens to a discarded candidate under this plan.
func (p *Plan) Verb() string {
	if p.DryRun {
		return "would discard"
	}
	return "discard"
}

func (p *Plan) filter(action Action) []Decision {
	var out []Decision
	for _, d := range p.Decisions {
		if d.Action == action {
			out = append(out, d)
		}
	}
	return out
}
