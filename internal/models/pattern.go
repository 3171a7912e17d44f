package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// PatternType enumerates the kinds of success patterns the learning
// engine mines from conversation outcomes.
type PatternType string

const (
	PatternWordUsage    PatternType = "word_usage"
	PatternCallToAction PatternType = "call_to_action"
	PatternTiming       PatternType = "timing"
)

// SuccessPattern is a recurring correlation between response
// characteristics and positive outcomes. Near-duplicate patterns of
// the same type are merged rather than accumulated.
type SuccessPattern struct {
	ID          surrealmodels.RecordID `json:"id,omitempty"`
	Tenant      string                 `json:"tenant"`
	Type        PatternType            `json:"type"`
	Description string                 `json:"description"`
	// Strength is the observed success rate in [0,1], recomputed as a
	// sample-size-weighted average on merge.
	Strength float64 `json:"strength"`
	// Triggers holds the concrete payload, e.g. the token set whose
	// presence the pattern describes.
	Triggers   []string  `json:"triggers"`
	SampleSize int       `json:"sample_size"`
	Created    time.Time `json:"created,omitempty"`
	Updated    time.Time `json:"updated,omitempty"`
}

// Merge folds another observation of the same pattern into this one:
// sample sizes sum and strength becomes the weighted average.
func (p *SuccessPattern) Merge(other SuccessPattern) {
	total := p.SampleSize + other.SampleSize
	if total > 0 {
		p.Strength = (p.Strength*float64(p.SampleSize) + other.Strength*float64(other.SampleSize)) / float64(total)
	}
	p.SampleSize = total
	seen := make(map[string]bool, len(p.Triggers))
	for _, t := range p.Triggers {
		seen[t] = true
	}
	for _, t := range other.Triggers {
		if !seen[t] {
			p.Triggers = append(p.Triggers, t)
			seen[t] = true
		}
	}
}
