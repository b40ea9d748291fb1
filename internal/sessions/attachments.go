package sessions

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const attachmentsDirName = "attachments"

// AddAttachment stores bytes under the session's attachments directory and
// returns the metadata record. Stored filename format:
// {msgIndex}-{contentIndex}-{hash16}.{ext}. Identical bytes share the hash
// segment, so repeated adds of the same content are deduplicated per
// position.
func (s *Store) AddAttachment(sess *Session, msgIndex, contentIndex int, originalName, mediaType string, data []byte) (Attachment, error) {
	sum := sha256.Sum256(data)
	hash16 := hex.EncodeToString(sum[:])[:16]

	ext := strings.ToLower(filepath.Ext(originalName))
	stored := fmt.Sprintf("%d-%d-%s%s", msgIndex, contentIndex, hash16, ext)

	dir := filepath.Join(s.Dir(sess.ID), attachmentsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Attachment{}, fmt.Errorf("create attachments dir: %w", err)
	}

	target := filepath.Join(dir, stored)
	if _, err := os.Stat(target); os.IsNotExist(err) {
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return Attachment{}, fmt.Errorf("write attachment: %w", err)
		}
	}

	return Attachment{
		OriginalFileName: filepath.Base(originalName),
		MediaType:        mediaType,
		MessageIndex:     msgIndex,
		ContentIndex:     contentIndex,
		StoredFileName:   stored,
		ContentHash:      hash16,
		SizeBytes:        int64(len(data)),
	}, nil
}

// AttachmentPath returns the on-disk location of a stored attachment.
func (s *Store) AttachmentPath(sess *Session, att Attachment) string {
	return filepath.Join(s.Dir(sess.ID), attachmentsDirName, att.StoredFileName)
}
