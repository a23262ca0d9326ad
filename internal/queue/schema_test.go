package queue

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "appdl.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNotificationsAreImmutable(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	n := &Notification{Kind: KindSystem, Title: "Cookies updated", Message: "3 cookies"}
	if err := store.AppendNotification(ctx, n); err != nil {
		t.Fatalf("AppendNotification: %v", err)
	}

	if _, err := store.db.ExecContext(ctx, "UPDATE notifications SET title = 'changed' WHERE id = ?", n.ID); err == nil {
		t.Fatal("expected title update to be rejected")
	}
	if _, err := store.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = ?", n.ID); err == nil {
		t.Fatal("expected delete to be rejected")
	}
	if err := store.MarkRead(ctx, n.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if _, err := store.db.ExecContext(ctx, "UPDATE notifications SET is_read = 0 WHERE id = ?", n.ID); err == nil {
		t.Fatal("expected read -> unread to be rejected")
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appdl.db")
	store, err := OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	store.Close()

	reopened, err := OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := reopened.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	reopened.Close()

	if _, err := OpenPath(path); err == nil {
		t.Fatal("expected schema mismatch")
	}
}
