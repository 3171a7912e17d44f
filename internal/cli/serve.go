package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nfadel/souqchat-go/internal/chat"
	"github.com/nfadel/souqchat-go/internal/config"
	"github.com/nfadel/souqchat-go/internal/keypool"
	"github.com/nfadel/souqchat-go/internal/llm"
	"github.com/nfadel/souqchat-go/internal/metrics"
	"github.com/nfadel/souqchat-go/internal/models"
	"github.com/nfadel/souqchat-go/internal/patterns"
	"github.com/nfadel/souqchat-go/internal/server"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var (
	serveAddr string
	serveWipe bool
)

// pruneInterval is how often expired memory is swept per tenant.
const pruneInterval = 15 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the conversational core service",
	Long: `Start the full service: HTTP webhook surface, per-conversation
dispatcher, response orchestrator, pattern mining schedule and memory
pruning. Shuts down gracefully on SIGINT/SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides SOUQCHAT_LISTEN_ADDR)")
	serveCmd.Flags().BoolVar(&serveWipe, "wipe", false, "wipe all data from database on startup (testing only)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if serveWipe || os.Getenv("SOUQCHAT_WIPE_DB") == "true" {
		wipeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := dbClient.WipeData(wipeCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("wipe database: %w", err)
		}
		logger.Warn("database wiped")
	}

	tenants := loadTenants()
	collector := metrics.NewCollector()

	memory := chat.NewMemoryStore(dbClient, logger)
	pool := keypool.NewManager(dbClient, logger)
	generator := llm.NewProviderClient(cfg.ProviderBaseURL, cfg.ProviderTimeout, logger)
	engine := patterns.NewEngine(dbClient, tenants, logger)

	orch := chat.NewOrchestrator(chat.OrchestratorDeps{
		Memory:    memory,
		Pool:      pool,
		Generator: generator,
		Tenants:   tenants,
		Finalize:  logFinalize,
		Patterns:  engine,
		Outcomes:  dbClient,
		Metrics:   collector,
		Logger:    logger,
	})

	// Replies leave the core here. Outbound channel delivery is a
	// separate service that tails these records.
	dispatcher := chat.NewDispatcher(func(turnCtx context.Context, msg chat.InboundMessage) {
		reply, err := orch.Reply(turnCtx, msg.Tenant, msg.Conversation, msg.Participant, msg.Text)
		if err != nil {
			logger.Error("turn failed", "conversation", msg.Conversation, "error", err)
			return
		}
		logger.Info("reply ready",
			"tenant", msg.Tenant,
			"conversation", msg.Conversation,
			"state", reply.Metadata.State,
			"degraded", reply.Metadata.Degraded,
			"text", reply.Text)
	}, 0, logger)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.MiningSchedule, func() {
		mineCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		engine.MineAll(mineCtx)
		for _, tenant := range tenants.IDs() {
			if err := engine.Reconcile(mineCtx, tenant); err != nil {
				logger.Error("pattern reconcile failed", "tenant", tenant, "error", err)
			}
		}
	}); err != nil {
		return fmt.Errorf("schedule pattern mining: %w", err)
	}
	scheduler.Start()

	pruneDone := make(chan struct{})
	go prunePeriodically(tenants, memory, pruneDone)

	addr := cfg.ListenAddr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := server.New(addr, dispatcher, orch, collector, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting souqchat", "addr", addr, "tenants", len(tenants.IDs()), "mining_schedule", cfg.MiningSchedule)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}

	// Stop intake first, then drain in-flight turns.
	dispatcher.Close()
	<-scheduler.Stop().Done()
	close(pruneDone)

	logger.Info("shutdown complete")
	return nil
}

func logFinalize(ctx context.Context, event models.FinalizeEvent) {
	logger.Info("order finalized",
		"tenant", event.Tenant,
		"conversation", event.Conversation,
		"product", event.Slots.Product,
		"color", event.Slots.Color,
		"size", event.Slots.Size)
}

// prunePeriodically sweeps expired memory for every tenant until done
// is closed.
func prunePeriodically(tenants *config.Tenants, memory *chat.MemoryStore, done <-chan struct{}) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			for _, id := range tenants.IDs() {
				n, err := memory.Prune(ctx, tenants.Get(id))
				if err != nil {
					logger.Error("memory prune failed", "tenant", id, "error", err)
					continue
				}
				if n > 0 {
					logger.Debug("memory pruned", "tenant", id, "records", n)
				}
			}
			cancel()
		}
	}
}
