package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/mogzi/internal/sessions"
)

func TestSessionList_AppliesConfiguredLimit(t *testing.T) {
	chats := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	cfgJSON := fmt.Sprintf(`{sessions: {chats_dir: %q, list_limit: 1}}`, chats)
	if err := os.WriteFile(cfgPath, []byte(cfgJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MOGZI_CONFIG", cfgPath)

	store, err := sessions.NewStore(chats)
	if err != nil {
		t.Fatal(err)
	}
	older := sessions.New()
	older.Name = "older-session"
	if err := store.Save(older); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	newer := sessions.New()
	newer.Name = "newer-session"
	if err := store.Save(newer); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	listCmd := sessionListCmd()
	listCmd.SetOut(&buf)
	if err := listCmd.RunE(listCmd, nil); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "newer-session") {
		t.Errorf("most recent session missing: %q", out)
	}
	if strings.Contains(out, "older-session") {
		t.Errorf("list limit not applied: %q", out)
	}
}
