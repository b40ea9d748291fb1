package tools

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrIntegrityMismatch marks a hash verification failure during the write
// protocol.
var ErrIntegrityMismatch = errors.New("IntegrityMismatch")

// SHA256Hex returns the lowercase hex SHA-256 of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FileSHA256 hashes a file's current content.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IntegrityWrite writes data to target with backup, temp-file staging, hash
// verification and atomic rename. On any failure the original file is
// restored from the backup; the target is never left partially written.
// Returns the verified SHA-256 of the final content.
func IntegrityWrite(target string, data []byte) (string, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create parent directory: %w", err)
	}

	existed := false
	backup := ""
	if _, err := os.Stat(target); err == nil {
		existed = true
		backup = backupName(target)
		if err := copyFile(target, backup); err != nil {
			return "", fmt.Errorf("create backup: %w", err)
		}
	}

	sum, err := writeVerified(target, data)
	if err != nil {
		if existed {
			if restoreErr := restoreBackup(backup, target); restoreErr != nil {
				return "", fmt.Errorf("%w; backup restore also failed: %v", err, restoreErr)
			}
		}
		return "", err
	}

	if existed {
		os.Remove(backup)
	}
	return sum, nil
}

// writeVerified performs steps 3-6 of the protocol: temp write, hash check,
// swap, re-hash.
func writeVerified(target string, data []byte) (string, error) {
	want := SHA256Hex(data)

	var rnd [6]byte
	if _, err := rand.Read(rnd[:]); err != nil {
		return "", err
	}
	// Temp file sits next to the target so the final rename stays on one
	// volume and remains atomic.
	tmp := target + ".tmp." + hex.EncodeToString(rnd[:])

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}
	cleanup := true
	defer func() {
		if cleanup {
			os.Remove(tmp)
		}
	}()

	got, err := FileSHA256(tmp)
	if err != nil {
		return "", fmt.Errorf("hash temp file: %w", err)
	}
	if got != want {
		return "", fmt.Errorf("%w: temp file hash %s != intended %s", ErrIntegrityMismatch, got, want)
	}

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("remove old target: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return "", fmt.Errorf("rename temp into place: %w", err)
	}
	cleanup = false

	final, err := FileSHA256(target)
	if err != nil {
		return "", fmt.Errorf("re-hash target: %w", err)
	}
	if final != want {
		return "", fmt.Errorf("%w: on-disk hash %s != intended %s", ErrIntegrityMismatch, final, want)
	}
	return final, nil
}

// backupName picks target.backup, or target.backup.N when taken.
func backupName(target string) string {
	candidate := target + ".backup"
	for n := 1; ; n++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s.backup.%d", target, n)
	}
}

func restoreBackup(backup, target string) error {
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(backup, target)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
