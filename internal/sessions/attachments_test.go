package sessions

import (
	"os"
	"strings"
	"testing"
)

func TestAddAttachment_DedupAndNaming(t *testing.T) {
	store := newTestStore(t)
	sess := New()
	data := []byte("image-bytes")

	first, err := store.AddAttachment(sess, 2, 0, "photo.PNG", "image/png", data)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(first.StoredFileName, "2-0-") || !strings.HasSuffix(first.StoredFileName, ".png") {
		t.Errorf("stored name = %s", first.StoredFileName)
	}
	if len(first.ContentHash) != 16 {
		t.Errorf("hash segment = %q, want 16 hex chars", first.ContentHash)
	}
	if first.OriginalFileName != "photo.PNG" || first.SizeBytes != int64(len(data)) {
		t.Errorf("metadata mismatch: %+v", first)
	}

	// Identical bytes at the same position produce the identical stored name.
	again, err := store.AddAttachment(sess, 2, 0, "photo.PNG", "image/png", data)
	if err != nil {
		t.Fatal(err)
	}
	if again.StoredFileName != first.StoredFileName {
		t.Errorf("dedup broken: %s vs %s", again.StoredFileName, first.StoredFileName)
	}

	// A different position shares the hash segment but not the name.
	other, err := store.AddAttachment(sess, 3, 1, "photo.PNG", "image/png", data)
	if err != nil {
		t.Fatal(err)
	}
	if other.ContentHash != first.ContentHash {
		t.Errorf("hash differs for identical bytes: %s vs %s", other.ContentHash, first.ContentHash)
	}
	if other.StoredFileName == first.StoredFileName {
		t.Error("different positions must not collide")
	}

	if _, err := os.Stat(store.AttachmentPath(sess, first)); err != nil {
		t.Errorf("attachment bytes missing: %v", err)
	}
}
