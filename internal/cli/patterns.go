package cli

import (
	"fmt"
	"strings"

	"github.com/nfadel/souqchat-go/internal/models"
	"github.com/nfadel/souqchat-go/internal/patterns"
	"github.com/spf13/cobra"
)

var (
	patternsTenant string
	patternsType   string
	patternsLimit  int
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect and run the pattern learning engine",
	Long: `Pattern mining normally runs on the serve schedule; these commands run
it on demand and show what has been learned.

Examples:
  souqchat patterns mine --tenant acme
  souqchat patterns list --tenant acme --type word_usage`,
}

var patternsMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Run one mining pass",
	RunE:  runPatternsMine,
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored success patterns",
	RunE:  runPatternsList,
}

func init() {
	patternsCmd.PersistentFlags().StringVarP(&patternsTenant, "tenant", "t", "", "tenant ID (required)")
	patternsListCmd.Flags().StringVar(&patternsType, "type", "", "filter by pattern type (word_usage, call_to_action, timing)")
	patternsListCmd.Flags().IntVarP(&patternsLimit, "limit", "n", 20, "max results")

	patternsCmd.AddCommand(patternsMineCmd)
	patternsCmd.AddCommand(patternsListCmd)
}

func runPatternsMine(cmd *cobra.Command, args []string) error {
	if patternsTenant == "" {
		return fmt.Errorf("--tenant is required")
	}

	engine := patterns.NewEngine(dbClient, loadTenants(), logger)
	n, err := engine.MineTenant(cmd.Context(), patternsTenant)
	if err != nil {
		return fmt.Errorf("mine patterns: %w", err)
	}
	if err := engine.Reconcile(cmd.Context(), patternsTenant); err != nil {
		return fmt.Errorf("reconcile patterns: %w", err)
	}

	fmt.Printf("Mined %d candidate pattern(s) for %s\n", n, patternsTenant)
	return nil
}

func runPatternsList(cmd *cobra.Command, args []string) error {
	if patternsTenant == "" {
		return fmt.Errorf("--tenant is required")
	}

	var (
		list []models.SuccessPattern
		err  error
	)
	if patternsType != "" {
		list, err = dbClient.ListPatternsByType(cmd.Context(), patternsTenant, models.PatternType(patternsType))
	} else {
		list, err = dbClient.TopPatterns(cmd.Context(), patternsTenant, patternsLimit)
	}
	if err != nil {
		return fmt.Errorf("list patterns: %w", err)
	}
	if len(list) == 0 {
		fmt.Println(mutedStyle.Render("no patterns for tenant " + patternsTenant))
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-14s %-9s %-7s %s", "TYPE", "STRENGTH", "SAMPLES", "DESCRIPTION")))
	for _, p := range list {
		fmt.Printf("%-14s %-9.2f %-7d %s\n", p.Type, p.Strength, p.SampleSize, p.Description)
		if len(p.Triggers) > 0 {
			fmt.Println(mutedStyle.Render("               triggers: " + strings.Join(p.Triggers, ", ")))
		}
	}
	return nil
}
