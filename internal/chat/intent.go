package chat

import "github.com/nfadel/souqchat-go/internal/models"

// Lexical intent and sentiment tagging for memory records. Cheap by
// design: these enrich stored turns for pattern learning, they don't
// drive the reply.

var intentVocab = map[models.Intent][]string{
	models.IntentGreeting:  {"hi", "hello", "hey", "سلام", "اهلا", "مرحبا", "صباح", "مساء"},
	models.IntentOrdering:  {"want", "buy", "order", "عايز", "عاوز", "اطلب", "اشتري", "هات", "محتاج"},
	models.IntentBrowsing:  {"price", "available", "colors", "sizes", "بكام", "سعر", "متوفر", "موجود", "مقاسات", "الوان"},
	models.IntentComplaint: {"bad", "broken", "refund", "late", "وحش", "مكسور", "متاخر", "استرجاع", "شكوي", "زعلان"},
}

var sentimentVocab = map[models.Sentiment][]string{
	models.SentimentPositive: {"great", "thanks", "love", "perfect", "شكرا", "جميل", "ممتاز", "حلو", "تسلم"},
	models.SentimentNegative: {"bad", "angry", "terrible", "hate", "وحش", "زعلان", "سيء", "مش عاجبني"},
}

// DetectIntent classifies the message's intent. Confirmation is the
// caller's determination (it already ran the detector).
func DetectIntent(message string, confirming bool) models.Intent {
	if confirming {
		return models.IntentConfirming
	}
	tokens := Tokens(message)
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	for _, intent := range []models.Intent{
		models.IntentComplaint,
		models.IntentOrdering,
		models.IntentBrowsing,
		models.IntentGreeting,
	} {
		for _, word := range intentVocab[intent] {
			if set[stripArticle(Normalize(word))] {
				return intent
			}
		}
	}
	return models.IntentOther
}

// DetectSentiment classifies the message's tone.
func DetectSentiment(message string) models.Sentiment {
	tokens := Tokens(message)
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	match := func(words []string) bool {
		for _, w := range words {
			if set[stripArticle(Normalize(w))] {
				return true
			}
		}
		return false
	}
	if match(sentimentVocab[models.SentimentNegative]) {
		return models.SentimentNegative
	}
	if match(sentimentVocab[models.SentimentPositive]) {
		return models.SentimentPositive
	}
	return models.SentimentNeutral
}
