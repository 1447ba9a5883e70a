package config

import (
	"os"
	"testing"
	"time"
)

func TestWatchReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
deployment:
  mode: embedded
  embedded:
    db_path: v1.db
`)

	changes := make(chan *Config, 4)
	w, err := Watch(path, OnChange(func(c *Config) { changes <- c }))
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer func() { _ = w.Close() }()

	if err := os.WriteFile(path, []byte(`
deployment:
  mode: embedded
  embedded:
    db_path: v2.db
`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case cfg := <-changes:
		if cfg.Deployment.Embedded.DBPath != "v2.db" {
			t.Errorf("DBPath = %q, want v2.db", cfg.Deployment.Embedded.DBPath)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatchKeepsLastGoodConfigOnBadEdit(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
deployment:
  mode: embedded
`)

	errs := make(chan error, 4)
	changed := make(chan *Config, 4)
	w, err := Watch(path, OnError(func(e error) { errs <- e }), OnChange(func(c *Config) { changed <- c }))
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer func() { _ = w.Close() }()

	if err := os.WriteFile(path, []byte(`
deployment:
  mode: not-a-real-mode
`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case <-errs:
	case <-changed:
		t.Fatal("OnChange fired for an invalid config")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}
}
