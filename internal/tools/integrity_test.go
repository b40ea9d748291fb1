package tools

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIntegrityWrite_NewFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "sub", "new.txt")
	data := []byte("brand new\n")

	sum, err := IntegrityWrite(target, data)
	if err != nil {
		t.Fatal(err)
	}
	if sum != SHA256Hex(data) {
		t.Errorf("sum = %s, want %s", sum, SHA256Hex(data))
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(data) {
		t.Errorf("content = %q", got)
	}
}

func TestIntegrityWrite_OverwriteCleansUp(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(target, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := IntegrityWrite(target, []byte("new")); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(target)
	if string(got) != "new" {
		t.Errorf("content = %q, want %q", got, "new")
	}

	// No backup or temp residue after success.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".backup") || strings.Contains(e.Name(), ".tmp.") {
			t.Errorf("leftover staging file %s", e.Name())
		}
	}
}

func TestBackupName_AvoidsCollisions(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "f.txt")

	first := backupName(target)
	if first != target+".backup" {
		t.Fatalf("first backup = %s", first)
	}
	if err := os.WriteFile(first, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	second := backupName(target)
	if second != target+".backup.1" {
		t.Errorf("second backup = %s", second)
	}
}

func TestFileSHA256_MatchesSHA256Hex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	data := []byte("checksum me")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := FileSHA256(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != SHA256Hex(data) {
		t.Errorf("FileSHA256 = %s, SHA256Hex = %s", got, SHA256Hex(data))
	}
}
