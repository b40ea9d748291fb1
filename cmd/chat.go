package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/mogzi/internal/agent"
	"github.com/nextlevelbuilder/mogzi/internal/config"
	"github.com/nextlevelbuilder/mogzi/internal/providers"
	"github.com/nextlevelbuilder/mogzi/internal/sessions"
	"github.com/nextlevelbuilder/mogzi/internal/tools"
	"github.com/nextlevelbuilder/mogzi/internal/tui"
)

func chatCmd() *cobra.Command {
	var (
		sessionID  string
		autoSubmit bool
	)
	cmd := &cobra.Command{
		Use:   "chat [prompt...]",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), sessionID, strings.Join(args, " "), autoSubmit)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "resume a session by id, id suffix or name")
	cmd.Flags().BoolVarP(&autoSubmit, "auto-submit", "a", false, "submit the prompt immediately")
	return cmd
}

func runChat(ctx context.Context, sessionID, prompt string, autoSubmit bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	config.Watch(ctx, cfg, cfgPath)

	store, err := sessions.NewStore(cfg.ChatsDir())
	if err != nil {
		return err
	}

	sess := sessions.New()
	if sessionID != "" {
		sess, err = store.Find(sessionID)
		if err != nil {
			return err
		}
	}

	workingDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}
	guard, err := tools.NewGuard(workingDir)
	if err != nil {
		return err
	}
	registry := tools.DefaultRegistry(cfg, guard)

	pc := cfg.ProviderConfig()
	if pc.APIKey == "" {
		return fmt.Errorf("no API key: set %s", pc.APIKeyEnv)
	}
	client := providers.NewAnthropicClient(pc.APIKey,
		providers.WithModel(pc.Model),
		providers.WithBaseURL(pc.BaseURL),
		providers.WithContextWindow(pc.ContextWindow),
		providers.WithMaxTokens(pc.MaxTokens),
		providers.WithIdleTimeout(pc.IdleTimeout()),
	)

	history := sessions.NewHistoryManager(store, sess)
	app := tui.NewApp(tui.Options{
		Config:       cfg,
		Client:       client,
		Store:        store,
		History:      history,
		Registry:     registry,
		SystemPrompt: agent.SystemPrompt(workingDir),
	})

	slog.Info("chat starting", "session", sess.ID, "model", client.Model(), "root", workingDir)
	return app.Run(ctx, prompt, autoSubmit && prompt != "")
}
