package patterns

import (
	"fmt"
	"sort"

	"github.com/nfadel/souqchat-go/internal/chat"
	"github.com/nfadel/souqchat-go/internal/models"
)

// Tokens shorter than this carry no signal for word-usage mining.
const minTokenLen = 3

// A token must appear in at least this many outcomes before it can
// become a candidate pattern.
const minSupport = 2

// ctaPhrases are the call-to-action markers looked for in responses.
var ctaPhrases = []string{
	"اطلب دلوقتي", "تحب تاكد", "يلا ناكد", "اكد الطلب", "ابعت العنوان",
	"order now", "confirm your order", "shall we confirm", "send your address",
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "you": true, "your": true,
	"with": true, "this": true, "that": true, "have": true, "are": true,
	"في": true, "من": true, "علي": true, "عن": true, "مع": true,
	"انت": true, "انا": true, "احنا": true, "اللي": true, "علشان": true,
	"يا": true, "لو": true, "ده": true, "دي": true, "كده": true,
}

// Mine derives candidate success patterns from a batch of conversation
// outcomes. It is a pure function; persistence and deduplication
// happen in the engine's upsert.
func Mine(tenant string, outcomes []models.Outcome) []models.SuccessPattern {
	if len(outcomes) == 0 {
		return nil
	}

	var candidates []models.SuccessPattern
	candidates = append(candidates, mineWordUsage(tenant, outcomes)...)
	candidates = append(candidates, mineCallToAction(tenant, outcomes)...)
	return candidates
}

// mineWordUsage finds tokens whose presence in responses correlates
// with positive outcomes.
func mineWordUsage(tenant string, outcomes []models.Outcome) []models.SuccessPattern {
	total := make(map[string]int)
	positive := make(map[string]int)

	for _, outcome := range outcomes {
		seen := make(map[string]bool)
		for _, response := range outcome.Responses {
			for _, tok := range chat.Tokens(response) {
				if len([]rune(tok)) < minTokenLen || stopwords[tok] || seen[tok] {
					continue
				}
				seen[tok] = true
				total[tok]++
				if outcome.Kind.Positive() {
					positive[tok]++
				}
			}
		}
	}

	tokens := make([]string, 0, len(total))
	for tok, n := range total {
		if n >= minSupport && positive[tok] > 0 {
			tokens = append(tokens, tok)
		}
	}
	sort.Strings(tokens)

	patterns := make([]models.SuccessPattern, 0, len(tokens))
	for _, tok := range tokens {
		patterns = append(patterns, models.SuccessPattern{
			Tenant:      tenant,
			Type:        models.PatternWordUsage,
			Description: fmt.Sprintf("responses using %q close more sales", tok),
			Strength:    float64(positive[tok]) / float64(total[tok]),
			Triggers:    []string{tok},
			SampleSize:  total[tok],
		})
	}
	return patterns
}

// mineCallToAction measures which closing phrases correlate with
// purchases.
func mineCallToAction(tenant string, outcomes []models.Outcome) []models.SuccessPattern {
	total := make(map[string]int)
	positive := make(map[string]int)

	for _, outcome := range outcomes {
		for _, phrase := range ctaPhrases {
			found := false
			for _, response := range outcome.Responses {
				if containsPhrase(response, phrase) {
					found = true
					break
				}
			}
			if !found {
				continue
			}
			total[phrase]++
			if outcome.Kind == models.OutcomePurchase {
				positive[phrase]++
			}
		}
	}

	phrases := make([]string, 0, len(total))
	for phrase, n := range total {
		if n >= minSupport && positive[phrase] > 0 {
			phrases = append(phrases, phrase)
		}
	}
	sort.Strings(phrases)

	patterns := make([]models.SuccessPattern, 0, len(phrases))
	for _, phrase := range phrases {
		patterns = append(patterns, models.SuccessPattern{
			Tenant:      tenant,
			Type:        models.PatternCallToAction,
			Description: fmt.Sprintf("ending with the call to action %q drives purchases", phrase),
			Strength:    float64(positive[phrase]) / float64(total[phrase]),
			Triggers:    []string{phrase},
			SampleSize:  total[phrase],
		})
	}
	return patterns
}

func containsPhrase(response, phrase string) bool {
	respTokens := chat.Tokens(response)
	phraseTokens := chat.Tokens(phrase)
	if len(phraseTokens) == 0 || len(respTokens) < len(phraseTokens) {
		return false
	}
	for i := 0; i+len(phraseTokens) <= len(respTokens); i++ {
		match := true
		for j, pt := range phraseTokens {
			if respTokens[i+j] != pt {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
