package patterns

import (
	"testing"

	"github.com/nfadel/souqchat-go/internal/models"
)

func outcome(kind models.OutcomeKind, responses ...string) models.Outcome {
	return models.Outcome{Tenant: "kicks", Kind: kind, Responses: responses}
}

func findByTrigger(patterns []models.SuccessPattern, typ models.PatternType, trigger string) *models.SuccessPattern {
	for i, p := range patterns {
		if p.Type != typ {
			continue
		}
		for _, t := range p.Triggers {
			if t == trigger {
				return &patterns[i]
			}
		}
	}
	return nil
}

func TestMineWordUsageStrength(t *testing.T) {
	outcomes := []models.Outcome{
		outcome(models.OutcomePurchase, "المقاس متوفر والشحن مجاني"),
		outcome(models.OutcomeAbandoned, "المقاس خلص للاسف"),
		outcome(models.OutcomePurchase, "مقاس تاني متوفر"),
	}

	patterns := Mine("kicks", outcomes)

	p := findByTrigger(patterns, models.PatternWordUsage, "مقاس")
	if p == nil {
		t.Fatalf("Expected a word_usage pattern for مقاس, got %v", patterns)
	}
	if p.SampleSize != 3 {
		t.Errorf("Expected sample size 3, got %d", p.SampleSize)
	}
	if p.Strength < 0.66 || p.Strength > 0.67 {
		t.Errorf("Expected strength 2/3, got %v", p.Strength)
	}

	stronger := findByTrigger(patterns, models.PatternWordUsage, "متوفر")
	if stronger == nil {
		t.Fatalf("Expected a word_usage pattern for متوفر")
	}
	if stronger.Strength != 1 {
		t.Errorf("Expected strength 1 for متوفر, got %v", stronger.Strength)
	}
}

func TestMineSkipsLowSupportTokens(t *testing.T) {
	outcomes := []models.Outcome{
		outcome(models.OutcomePurchase, "كلمة فريدة هنا"),
		outcome(models.OutcomePurchase, "رد مختلف تماما"),
	}

	patterns := Mine("kicks", outcomes)

	if p := findByTrigger(patterns, models.PatternWordUsage, "فريدة"); p != nil {
		t.Errorf("Single-outcome token must not become a pattern: %+v", p)
	}
}

func TestMineCallToAction(t *testing.T) {
	outcomes := []models.Outcome{
		outcome(models.OutcomePurchase, "الكوتشي جامد، اطلب دلوقتي وهيوصلك بكرة"),
		outcome(models.OutcomePurchase, "اطلب دلوقتي قبل ما الخصم يخلص"),
		outcome(models.OutcomeAbandoned, "تحب تشوف حاجة تانية؟"),
	}

	patterns := Mine("kicks", outcomes)

	p := findByTrigger(patterns, models.PatternCallToAction, "اطلب دلوقتي")
	if p == nil {
		t.Fatalf("Expected a call_to_action pattern, got %v", patterns)
	}
	if p.Strength != 1 {
		t.Errorf("Expected strength 1, got %v", p.Strength)
	}
	if p.SampleSize != 2 {
		t.Errorf("Expected sample size 2, got %d", p.SampleSize)
	}
}

func TestMineEmptyOutcomes(t *testing.T) {
	if got := Mine("kicks", nil); got != nil {
		t.Errorf("Expected nil candidates for no outcomes, got %v", got)
	}
}
