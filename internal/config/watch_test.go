package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vane-rt/vane/internal/actorcore"
	"github.com/vane-rt/vane/internal/manager"
	"github.com/vane-rt/vane/internal/rtlog"
)

// TestWatcherReloadsConfigWithoutDisruptingTheManager exercises the
// fsnotify-backed hot-reload path: a Watcher bound to a live Manager must
// survive a config rewrite while the manager still reports its managed
// worker. It does not observe whether the PlacementUpdate reached the
// Manager. The handler itself (manager.Manager.handleConfigChanged) is covered
// directly by the manager package's own tests; this test's job is to prove
// the file-watch-to-dispatch plumbing doesn't panic or wedge.
func TestWatcherReloadsConfigWithoutDisruptingTheManager(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vane.json")
	initial := `{"default_mailbox_capacity": 64, "placements": {}}`
	if err := os.WriteFile(path, []byte(initial), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	mgr := manager.New(rtlog.Discard)
	worker := actorcore.NewActor("worker")
	mgr.Manage(worker, manager.Placement{})
	mgr.Init(context.Background())
	defer mgr.Shutdown()

	w, err := Watch(path, mgr, rtlog.Discard)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	updated := `{"default_mailbox_capacity": 64, "placements": {"worker": {"priority": 1, "class": "fifo"}}}`
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		snaps := mgr.Snapshot()
		if len(snaps) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("manager never reflected the managed worker")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
