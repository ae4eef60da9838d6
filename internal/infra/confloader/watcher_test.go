package confloader

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/cepip-console/internal/telemetry/logger"
)

func startWatcher(t *testing.T, file string) (*Watcher, chan string) {
	t.Helper()
	w, err := NewWatcher(WithWatcherLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Watch(file); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	changed := make(chan string, 16)
	w.OnChange(func(path string) {
		select {
		case changed <- path:
		default:
		}
	})
	w.StartAsync()
	t.Cleanup(func() { w.Stop() })

	// Let the watcher settle before touching files.
	time.Sleep(100 * time.Millisecond)
	return w, changed
}

func TestWatcher_FileChange(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cli.yaml")
	if err := os.WriteFile(file, []byte("output: table\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, changed := startWatcher(t, file)

	if err := os.WriteFile(file, []byte("output: json\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-changed:
		if filepath.Base(path) != "cli.yaml" {
			t.Errorf("callback path = %q", path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnChange() callback was not triggered")
	}
}

func TestWatcher_FileCreate(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cli.yaml")
	_, changed := startWatcher(t, file)

	if err := os.WriteFile(file, []byte("server: x\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("creating the watched file should notify")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "cli.yaml")
	if err := os.WriteFile(file, []byte("a: 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, changed := startWatcher(t, file)

	if err := os.WriteFile(filepath.Join(dir, "history"), []byte("ls\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-changed:
		t.Errorf("unexpected notification for %q", path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_MultipleCallbacks(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cli.yaml")
	if err := os.WriteFile(file, []byte("a: 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	w, changed := startWatcher(t, file)

	var second atomic.Int32
	w.OnChange(func(string) { second.Add(1) })

	if err := os.WriteFile(file, []byte("a: 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("no notification")
	}

	deadline := time.Now().Add(time.Second)
	for second.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if second.Load() == 0 {
		t.Error("callback registered while running was not called")
	}
}

func TestWatcher_Watch_NonexistentDir(t *testing.T) {
	w, err := NewWatcher(WithWatcherLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := w.Watch("/nonexistent/dir/cli.yaml"); err == nil {
		t.Error("Watch() should fail for a missing directory")
	}
}

func TestWatcher_StopTwice(t *testing.T) {
	w, err := NewWatcher(WithWatcherLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	w.StartAsync()
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}
