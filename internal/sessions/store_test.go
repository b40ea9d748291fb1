package sessions

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nextlevelbuilder/mogzi/internal/providers"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestStore_RoundTripWithToolCall(t *testing.T) {
	store := newTestStore(t)
	sess := New()
	callID := "call_001"

	sess.History = append(sess.History,
		Message{Role: providers.RoleUser, Content: "list files"},
		Message{Role: providers.RoleAssistant, Content: "I'll list"},
		Message{
			Role: providers.RoleTool,
			Content: "3 entries",
			FunctionResults: []providers.FunctionResult{{CallID: callID, Result: "3 entries"}},
		},
		Message{Role: providers.RoleAssistant, Content: "Found 3"},
	)
	// The call itself rides on the assistant message preceding the result.
	sess.History[1].FunctionCalls = []providers.FunctionCall{
		{CallID: callID, Name: "list_files", Arguments: map[string]any{"path": "."}},
	}
	if err := store.Save(sess); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.History) != 4 {
		t.Fatalf("got %d messages, want 4", len(loaded.History))
	}
	roles := []string{"user", "assistant", "tool", "assistant"}
	for i, want := range roles {
		if loaded.History[i].Role != want {
			t.Errorf("message %d role = %s, want %s", i, loaded.History[i].Role, want)
		}
	}
	calls := loaded.History[1].FunctionCalls
	if len(calls) != 1 || calls[0].CallID != callID || calls[0].Name != "list_files" {
		t.Errorf("function call mismatch: %+v", calls)
	}
	results := loaded.History[2].FunctionResults
	if len(results) != 1 || results[0].CallID != callID || results[0].Result != "3 entries" {
		t.Errorf("function result mismatch: %+v", results)
	}
}

func TestStore_CorruptedFileQuarantined(t *testing.T) {
	store := newTestStore(t)
	sess := New()
	if err := store.Save(sess); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(store.Dir(sess.ID), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	recovered, err := store.Load(sess.ID)
	if err != nil {
		t.Fatalf("load of corrupted session errored: %v", err)
	}
	if recovered.ID == sess.ID {
		t.Error("recovered session reused the corrupted id")
	}
	if _, err := os.Stat(path + ".corrupted"); err != nil {
		t.Errorf("corrupted file not quarantined: %v", err)
	}
}

func TestStore_Find(t *testing.T) {
	store := newTestStore(t)

	a := New()
	a.Name = "refactor"
	if err := store.Save(a); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	b := New()
	b.Name = "Refactor"
	if err := store.Save(b); err != nil {
		t.Fatal(err)
	}

	t.Run("exact uuid", func(t *testing.T) {
		got, err := store.Find(a.ID)
		if err != nil || got.ID != a.ID {
			t.Fatalf("Find(%s) = %v, %v", a.ID, got, err)
		}
	})

	t.Run("uuid suffix", func(t *testing.T) {
		suffix := a.ID[len(a.ID)-12:]
		got, err := store.Find(suffix)
		if err != nil || got.ID != a.ID {
			t.Fatalf("Find(%s) = %v, %v", suffix, got, err)
		}
	})

	t.Run("short suffix ignored", func(t *testing.T) {
		if _, err := store.Find(a.ID[len(a.ID)-4:]); !errors.Is(err, ErrNotFound) {
			t.Fatalf("short suffix err = %v, want NotFound", err)
		}
	})

	t.Run("name case-insensitive, most recent wins", func(t *testing.T) {
		got, err := store.Find("REFACTOR")
		if err != nil {
			t.Fatal(err)
		}
		if got.ID != b.ID {
			t.Errorf("Find(name) = %s, want most recent %s", got.ID, b.ID)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := store.Find("does-not-exist"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want NotFound", err)
		}
	})
}

func TestStore_ListOrderAndLimit(t *testing.T) {
	store := newTestStore(t)
	var ids []string
	for i := 0; i < 3; i++ {
		s := New()
		if err := store.Save(s); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, s.ID)
		time.Sleep(5 * time.Millisecond)
	}

	headers, err := store.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(headers) != 3 {
		t.Fatalf("got %d headers, want 3", len(headers))
	}
	if headers[0].ID != ids[2] {
		t.Errorf("first header = %s, want most recent %s", headers[0].ID, ids[2])
	}

	limited, err := store.List(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d limited headers, want 2", len(limited))
	}
}

func TestStore_ClearKeepsIdentity(t *testing.T) {
	store := newTestStore(t)
	sess := New()
	sess.Name = "keepme"
	sess.InitialPrompt = "hello"
	sess.History = append(sess.History, Message{Role: providers.RoleUser, Content: "hello"})
	sess.UsageMetrics.Accumulate(providers.Usage{InputTokens: 10, OutputTokens: 5})
	if err := store.Save(sess); err != nil {
		t.Fatal(err)
	}
	created := sess.CreatedAt

	if err := store.Clear(sess); err != nil {
		t.Fatal(err)
	}
	loaded, err := store.Load(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Name != "keepme" || !loaded.CreatedAt.Equal(created) {
		t.Errorf("identity not preserved: %+v", loaded)
	}
	if len(loaded.History) != 0 || loaded.InitialPrompt != "" {
		t.Errorf("history not cleared: %+v", loaded)
	}
	if loaded.UsageMetrics.RequestCount != 0 || loaded.UsageMetrics.InputTokens != 0 {
		t.Errorf("metrics not reset: %+v", loaded.UsageMetrics)
	}
}

func TestUsageMetrics_Monotonic(t *testing.T) {
	var m UsageMetrics
	m.Accumulate(providers.Usage{InputTokens: 100, OutputTokens: 20, CacheReadTokens: 5})
	m.Accumulate(providers.Usage{InputTokens: 50, OutputTokens: 10, CacheWriteTokens: 3})

	if m.InputTokens != 150 || m.OutputTokens != 30 {
		t.Errorf("token totals = %d/%d", m.InputTokens, m.OutputTokens)
	}
	if m.CacheReadTokens != 5 || m.CacheWriteTokens != 3 {
		t.Errorf("cache totals = %d/%d", m.CacheReadTokens, m.CacheWriteTokens)
	}
	if m.RequestCount != 2 {
		t.Errorf("request count = %d, want 2", m.RequestCount)
	}
	if m.LastUpdated.IsZero() {
		t.Error("lastUpdated not set")
	}
}
