package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/mogzi/internal/config"
	"github.com/nextlevelbuilder/mogzi/internal/sessions"
	"github.com/nextlevelbuilder/mogzi/internal/tui"
)

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and manage stored chat sessions",
	}
	cmd.AddCommand(sessionListCmd(), sessionInfoCmd(), sessionRenameCmd())
	return cmd
}

func openStore() (*sessions.Store, *config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, nil, err
	}
	store, err := sessions.NewStore(cfg.ChatsDir())
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

func sessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored sessions, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := openStore()
			if err != nil {
				return err
			}
			headers, err := store.List(cfg.SessionListLimit())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(headers) == 0 {
				fmt.Fprintln(out, "No sessions.")
				return nil
			}
			for _, h := range headers {
				name := h.Name
				if name == "" {
					name = "-"
				}
				fmt.Fprintf(out, "%s  %-20s  %s  %s\n",
					h.ID,
					name,
					h.LastModifiedAt.Local().Format("2006-01-02 15:04"),
					firstLine(h.InitialPrompt, 60))
			}
			return nil
		},
	}
}

func sessionInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <id-or-name>",
		Short: "Show details of one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore()
			if err != nil {
				return err
			}
			sess, err := store.Find(args[0])
			if err != nil {
				return err
			}
			m := sess.UsageMetrics
			fmt.Printf("id:             %s\n", sess.ID)
			fmt.Printf("name:           %s\n", sess.Name)
			fmt.Printf("created:        %s\n", sess.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Printf("last modified:  %s\n", sess.LastModifiedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Printf("messages:       %d\n", len(sess.History))
			fmt.Printf("initial prompt: %s\n", firstLine(sess.InitialPrompt, 80))
			fmt.Printf("tokens:         ↑ %s ↓ %s (%d requests)\n",
				tui.FormatTokens(m.InputTokens), tui.FormatTokens(m.OutputTokens), m.RequestCount)
			return nil
		},
	}
}

func sessionRenameCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "rename <new-name>",
		Short: "Rename a session (most recent unless --session is given)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore()
			if err != nil {
				return err
			}
			var sess *sessions.Session
			if sessionID != "" {
				sess, err = store.Find(sessionID)
			} else {
				sess, err = mostRecent(store)
			}
			if err != nil {
				return err
			}
			if err := store.Rename(sess, args[0]); err != nil {
				return err
			}
			fmt.Printf("Renamed %s to %q.\n", sess.ID, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id, id suffix or name")
	return cmd
}

func mostRecent(store *sessions.Store) (*sessions.Session, error) {
	headers, err := store.List(1)
	if err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("no sessions to rename")
	}
	return store.Load(headers[0].ID)
}

func firstLine(s string, max int) string {
	for i, r := range s {
		if r == '\n' {
			s = s[:i]
			break
		}
	}
	runes := []rune(s)
	if len(runes) > max {
		return string(runes[:max]) + "…"
	}
	return s
}
