package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/nfadel/souqchat-go/internal/chat"
	"github.com/nfadel/souqchat-go/internal/keypool"
	"github.com/nfadel/souqchat-go/internal/llm"
	"github.com/nfadel/souqchat-go/internal/patterns"
	"github.com/spf13/cobra"
)

var (
	chatTenant       string
	chatConversation string
	chatParticipant  string
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send messages through the pipeline from the terminal",
	Long: `Run the full turn pipeline against the live database from the
terminal, for manual smoke testing. With a message argument it handles
one turn and exits; without one it reads turns from stdin until EOF.

Each invocation starts a fresh conversation unless --conversation pins
an existing one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatTenant, "tenant", "t", "default", "tenant ID")
	chatCmd.Flags().StringVarP(&chatConversation, "conversation", "c", "", "conversation ID (default: new)")
	chatCmd.Flags().StringVarP(&chatParticipant, "participant", "p", "cli", "participant ID")
}

func runChat(cmd *cobra.Command, args []string) error {
	tenants := loadTenants()

	orch := chat.NewOrchestrator(chat.OrchestratorDeps{
		Memory:    chat.NewMemoryStore(dbClient, logger),
		Pool:      keypool.NewManager(dbClient, logger),
		Generator: llm.NewProviderClient(cfg.ProviderBaseURL, cfg.ProviderTimeout, logger),
		Tenants:   tenants,
		Finalize:  logFinalize,
		Patterns:  patterns.NewEngine(dbClient, tenants, logger),
		Outcomes:  dbClient,
		Logger:    logger,
	})

	conversation := chatConversation
	if conversation == "" {
		conversation = uuid.NewString()
		fmt.Println(mutedStyle.Render("conversation " + conversation))
	}

	if len(args) == 1 {
		return chatTurn(cmd, orch, conversation, args[0])
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Fprint(os.Stderr, "> ")
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text != "" {
			if err := chatTurn(cmd, orch, conversation, text); err != nil {
				return err
			}
		}
		fmt.Fprint(os.Stderr, "> ")
	}
	return scanner.Err()
}

func chatTurn(cmd *cobra.Command, orch *chat.Orchestrator, conversation, text string) error {
	reply, err := orch.Reply(cmd.Context(), chatTenant, conversation, chatParticipant, text)
	if err != nil {
		return fmt.Errorf("handle turn: %w", err)
	}

	fmt.Println(activeStyle.Render(reply.Text))
	note := fmt.Sprintf("state=%s method=%s", reply.Metadata.State, reply.Metadata.Method)
	if reply.Metadata.Degraded {
		note += " degraded"
	}
	if reply.Metadata.Escalated {
		note += " escalated"
	}
	fmt.Println(mutedStyle.Render(note))
	return nil
}
