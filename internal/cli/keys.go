package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/nfadel/souqchat-go/internal/models"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	keysTenant string
	keysLimit  int
	keysModels []string
	keysReset  bool
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#61AFEF"))
	activeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#98C379"))
	exhaustedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#636B78"))
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage a tenant's provider credential pool",
	Long: `Administer the pool of provider API keys a tenant rotates through.

Subcommands:
  list        Show the pool with usage and active state
  add         Register a new key (secret read from the terminal, no echo)
  activate    Force a specific key active
  deactivate  Take a key out of rotation

Examples:
  souqchat keys list --tenant acme
  souqchat keys add --tenant acme --limit 1000 --model gpt-4o-mini
  souqchat keys activate credential:xyz --tenant acme --reset`,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a tenant's credentials",
	RunE:  runKeysList,
}

var keysAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a credential to the pool",
	RunE:  runKeysAdd,
}

var keysActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "Force a credential active",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysActivate,
}

var keysDeactivateCmd = &cobra.Command{
	Use:   "deactivate <id>",
	Short: "Take a credential out of rotation",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysDeactivate,
}

func init() {
	keysCmd.PersistentFlags().StringVarP(&keysTenant, "tenant", "t", "", "tenant ID (required)")
	keysAddCmd.Flags().IntVarP(&keysLimit, "limit", "n", 1000, "daily request limit")
	keysAddCmd.Flags().StringSliceVarP(&keysModels, "model", "m", nil, "model identifiers, preferred first")
	keysActivateCmd.Flags().BoolVar(&keysReset, "reset", false, "reset usage counter on activation")

	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysAddCmd)
	keysCmd.AddCommand(keysActivateCmd)
	keysCmd.AddCommand(keysDeactivateCmd)
}

func requireTenant() error {
	if keysTenant == "" {
		return fmt.Errorf("--tenant is required")
	}
	return nil
}

func runKeysList(cmd *cobra.Command, args []string) error {
	if err := requireTenant(); err != nil {
		return err
	}

	creds, err := dbClient.ListCredentials(cmd.Context(), keysTenant)
	if err != nil {
		return fmt.Errorf("list credentials: %w", err)
	}
	if len(creds) == 0 {
		fmt.Println(mutedStyle.Render("no credentials for tenant " + keysTenant))
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-28s %-22s %-12s %-8s", "ID", "MODEL", "USAGE", "STATE")))
	for _, c := range creds {
		usage := fmt.Sprintf("%d/%d", c.UsedToday, c.DailyLimit)
		state := "idle"
		style := mutedStyle
		switch {
		case c.Active && c.Exhausted():
			state, style = "exhausted", exhaustedStyle
		case c.Active:
			state, style = "active", activeStyle
		case c.Exhausted():
			state, style = "exhausted", exhaustedStyle
		}
		line := fmt.Sprintf("%-28s %-22s %-12s %-8s", c.ID.String(), c.Model(), usage, state)
		fmt.Println(style.Render(line))
	}
	return nil
}

func runKeysAdd(cmd *cobra.Command, args []string) error {
	if err := requireTenant(); err != nil {
		return err
	}

	secret, err := readSecret()
	if err != nil {
		return err
	}

	created, err := dbClient.CreateCredential(cmd.Context(), models.Credential{
		Tenant:     keysTenant,
		Secret:     secret,
		Models:     keysModels,
		DailyLimit: keysLimit,
	})
	if err != nil {
		return fmt.Errorf("create credential: %w", err)
	}

	fmt.Printf("Added %s (inactive; run 'souqchat keys activate %s --tenant %s' to use it)\n",
		activeStyle.Render(created.ID.String()), created.ID.String(), keysTenant)
	return nil
}

func runKeysActivate(cmd *cobra.Command, args []string) error {
	if err := requireTenant(); err != nil {
		return err
	}

	id := strings.TrimPrefix(args[0], "credential:")
	cred, err := dbClient.ActivateCredential(cmd.Context(), keysTenant, id, keysReset)
	if err != nil {
		return fmt.Errorf("activate credential: %w", err)
	}
	fmt.Printf("Activated %s (%d/%d used)\n", activeStyle.Render(cred.ID.String()), cred.UsedToday, cred.DailyLimit)
	return nil
}

func runKeysDeactivate(cmd *cobra.Command, args []string) error {
	id := strings.TrimPrefix(args[0], "credential:")
	if err := dbClient.DeactivateCredential(cmd.Context(), id); err != nil {
		return fmt.Errorf("deactivate credential: %w", err)
	}
	fmt.Printf("Deactivated credential:%s\n", id)
	return nil
}

// readSecret reads the API key without echo when stdin is a terminal,
// falling back to a plain line read for piped input.
func readSecret() (string, error) {
	fmt.Fprint(os.Stderr, "API key: ")
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		secret := strings.TrimSpace(string(raw))
		if secret == "" {
			return "", fmt.Errorf("empty secret")
		}
		return secret, nil
	}

	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}
