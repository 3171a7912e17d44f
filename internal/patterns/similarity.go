// Package patterns mines recurring success patterns from conversation
// outcomes and keeps the stored set free of near-duplicates.
package patterns

import (
	"github.com/nfadel/souqchat-go/internal/chat"
	"github.com/nfadel/souqchat-go/internal/models"
)

// Similarity weights: the description carries most of the signal, the
// trigger payload confirms it. Calibrated so two descriptions of the
// same observation that differ only in a measured rate clear the
// default merge threshold when their triggers coincide.
const (
	descWeight    = 0.6
	triggerWeight = 0.4
)

// Similarity scores how close two patterns are in [0,1], as a blend of
// token-set Jaccard over the normalized descriptions and Jaccard over
// the trigger payloads. Patterns of different types never match.
func Similarity(a, b models.SuccessPattern) float64 {
	if a.Type != b.Type {
		return 0
	}

	descSim := jaccard(tokenSet(a.Description), tokenSet(b.Description))
	if len(a.Triggers) == 0 && len(b.Triggers) == 0 {
		return descSim
	}
	trigSim := jaccard(normalizeSet(a.Triggers), normalizeSet(b.Triggers))
	return descWeight*descSim + triggerWeight*trigSim
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range chat.Tokens(s) {
		set[tok] = true
	}
	return set
}

func normalizeSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		for _, tok := range chat.Tokens(item) {
			set[tok] = true
		}
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if b[tok] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
