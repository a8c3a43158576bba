// Package report renders the outcome of a rotation run for humans or machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bit2swaz/rotate-backups/internal/engine"
	"github.com/bit2swaz/rotate-backups/internal/rotation"
)

// Format selects the report encoding.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat validates a --output value.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case "", Text:
		return Text, nil
	case JSON, YAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", value)
	}
}

// Report is the serialisable form of an engine.RunSummary.
type Report struct {
	RunID   string   `json:"run_id" yaml:"run_id"`
	Failed  bool     `json:"failed" yaml:"failed"`
	Targets []Target `json:"targets" yaml:"targets"`
}

// Target describes one location.
type Target struct {
	Location  string      `json:"location" yaml:"location"`
	DryRun    bool        `json:"dry_run" yaml:"dry_run"`
	Error     string      `json:"error,omitempty" yaml:"error,omitempty"`
	Kept      int         `json:"kept" yaml:"kept"`
	Discarded int         `json:"discarded" yaml:"discarded"`
	Deleted   []string    `json:"deleted,omitempty" yaml:"deleted,omitempty"`
	Failures  []Failure   `json:"failures,omitempty" yaml:"failures,omitempty"`
	Excluded  []Exclusion `json:"excluded,omitempty" yaml:"excluded,omitempty"`
	Decisions []Decision  `json:"decisions" yaml:"decisions"`
	Elapsed   string      `json:"elapsed" yaml:"elapsed"`
}

// Decision is one keep or discard verdict.
type Decision struct {
	Name      string     `json:"name" yaml:"name"`
	Timestamp *time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Action    string     `json:"action" yaml:"action"`
	Reasons   []string   `json:"reasons" yaml:"reasons"`
}

// Exclusion is a name removed by include, exclude or ignore rules.
type Exclusion struct {
	Name   string `json:"name" yaml:"name"`
	Reason string `json:"reason" yaml:"reason"`
}

// Failure is a discarded backup that could not be deleted.
type Failure struct {
	Name  string `json:"name" yaml:"name"`
	Error string `json:"error" yaml:"error"`
}

// Build converts a run summary into a report.
func Build(summary engine.RunSummary) Report {
	r := Report{RunID: summary.RunID, Failed: summary.Failed()}
	for _, res := range summary.Results {
		r.Targets = append(r.Targets, buildTarget(res))
	}
	return r
}

func buildTarget(res engine.TargetResult) Target {
	t := Target{
		Location: res.Location,
		Deleted:  res.Deleted,
		Elapsed:  res.Elapsed.Round(time.Millisecond).String(),
	}
	if res.Err != nil {
		t.Error = res.Err.Error()
	}
	for _, f := range res.Failures {
		t.Failures = append(t.Failures, Failure{Name: f.Name, Error: f.Err.Error()})
	}
	for _, ex := range res.Excluded {
		t.Excluded = append(t.Excluded, Exclusion{Name: ex.Name, Reason: ex.Reason})
	}
	if res.Plan == nil {
		return t
	}

	t.DryRun = res.Plan.DryRun
	for _, d := range res.Plan.Decisions {
		dec := Decision{Name: d.Name, Action: d.Action.String(), Reasons: d.Reasons}
		if d.HasTimestamp {
			ts := d.Timestamp
			dec.Timestamp = &ts
		}
		if d.Action == rotation.Keep {
			t.Kept++
		} else {
			t.Discarded++
		}
		t.Decisions = append(t.Decisions, dec)
	}
	return t
}

// Write encodes r to w in the requested format.
func Write(w io.Writer, format Format, r Report) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}
		return nil
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		return nil
	default:
		return writeText(w, r)
	}
}
