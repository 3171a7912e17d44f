package chat

import (
	"strings"

	"github.com/nfadel/souqchat-go/internal/config"
	"github.com/nfadel/souqchat-go/internal/models"
)

// ExtractSlots derives the order's current slot state from the memory
// window plus the newest message, using the tenant's vocabulary. It is
// a pure function of its inputs: re-running it on the same window and
// message yields the same result.
//
// Turns are scanned newest first, latest message first, so the most
// recent product mention wins. Once a product is found, older mentions
// of a different product are ignored rather than merged.
func ExtractSlots(window []models.MemoryRecord, latest string, tenant config.Tenant) models.OrderSlots {
	var slots models.OrderSlots

	// Scan newest first: the latest message, then the window backwards.
	type turnScan struct {
		tokens  []string
		joined  string
		product string
	}
	scans := make([]turnScan, 0, len(window)+1)
	add := func(text string) {
		tokens := Tokens(text)
		joined := strings.Join(tokens, " ")
		scans = append(scans, turnScan{tokens, joined, matchProduct(tokens, joined, tenant)})
	}
	add(latest)
	for i := len(window) - 1; i >= 0; i-- {
		add(window[i].Message)
	}

	// Most recent product mention wins.
	for _, s := range scans {
		if s.product != "" {
			slots.Product = s.product
			break
		}
	}

	// Track which turn supplied color and size. A color and a size from
	// different turns with no product anywhere cannot be assumed to
	// describe the same order.
	colorTurn, sizeTurn := -1, -1

	for turn, s := range scans {
		// A turn about a different product contributes nothing: the new
		// product supersedes, its fields don't merge.
		if s.product != "" && s.product != slots.Product {
			continue
		}
		if slots.Color == "" {
			if color := matchTerm(s.tokens, s.joined, colorVocab(tenant)); color != "" {
				slots.Color = color
				colorTurn = turn
			}
		}
		if slots.Size == "" {
			if size := matchTerm(s.tokens, s.joined, sizeVocab(tenant)); size != "" {
				slots.Size = size
				sizeTurn = turn
			}
		}
		if slots.Color != "" && slots.Size != "" {
			break
		}
	}

	if slots.Product == "" && slots.Color != "" && slots.Size != "" && colorTurn != sizeTurn {
		slots.NeedsReview = true
	}
	return slots
}

// matchProduct matches product names and aliases, returning the
// canonical configured name.
func matchProduct(tokens []string, joined string, tenant config.Tenant) string {
	for _, p := range tenant.Products {
		if containsToken(tokens, joined, p.Name) {
			return p.Name
		}
		for _, alias := range p.Aliases {
			if containsToken(tokens, joined, alias) {
				return p.Name
			}
		}
	}
	return ""
}

func matchTerm(tokens []string, joined string, vocab []string) string {
	for _, term := range vocab {
		if containsToken(tokens, joined, term) {
			return term
		}
	}
	return ""
}

// colorVocab merges tenant-level colors with per-product ones.
func colorVocab(tenant config.Tenant) []string {
	vocab := append([]string{}, tenant.Colors...)
	for _, p := range tenant.Products {
		vocab = append(vocab, p.Colors...)
	}
	return vocab
}

func sizeVocab(tenant config.Tenant) []string {
	vocab := append([]string{}, tenant.Sizes...)
	for _, p := range tenant.Products {
		vocab = append(vocab, p.Sizes...)
	}
	return vocab
}

// slotExtractionPrompts builds the model-tier extraction prompt, used
// only when the lexical tier cannot identify a product.
func slotExtractionPrompts(window []models.MemoryRecord, latest string, tenant config.Tenant) (system, user string) {
	var names []string
	for _, p := range tenant.Products {
		names = append(names, p.Name)
	}

	system = `You extract order details from a sales chat. Identify the product, color and size the customer wants.

Output format (one line each, leave the value empty when unknown):
PRODUCT|<name>
COLOR|<color>
SIZE|<size>

Known products: ` + strings.Join(names, ", ")

	var b strings.Builder
	for _, rec := range window {
		b.WriteString("customer: ")
		b.WriteString(rec.Message)
		b.WriteString("\n")
	}
	b.WriteString("customer: ")
	b.WriteString(latest)
	user = b.String()
	return system, user
}

// parseSlotLines parses the model-tier output defensively; malformed
// lines are skipped rather than failing the turn.
func parseSlotLines(text string) models.OrderSlots {
	var slots models.OrderSlots
	for _, line := range strings.Split(text, "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), "|")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "PRODUCT":
			slots.Product = value
		case "COLOR":
			slots.Color = value
		case "SIZE":
			slots.Size = value
		}
	}
	return slots
}
