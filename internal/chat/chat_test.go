package chat

import (
	"log/slog"
	"os"

	"github.com/nfadel/souqchat-go/internal/config"
)

// testLogger creates a logger for test visibility.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// testTenants builds a sneaker seller with an Arabic-first vocabulary.
func testTenants() *config.Tenants {
	return config.NewTenants(config.Tenant{
		ID:            "kicks",
		Persona:       "باشمهندس مبيعات ودود",
		BusinessFacts: "شحن لكل المحافظات خلال يومين",
		Products: []config.ProductSpec{
			{
				Name:    "كوتشي",
				Aliases: []string{"حذاء رياضي", "sneakers"},
			},
			{
				Name:    "شنطة",
				Aliases: []string{"حقيبة", "bag"},
			},
		},
		Colors: []string{"أبيض", "اسود", "احمر"},
		Sizes:  []string{"38", "39", "40", "41", "42", "43", "44", "45"},
	})
}

func testTenant() config.Tenant {
	return testTenants().Get("kicks")
}
