package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/contactkeval/fintech-modeler/internal/publish"
)

type recordingPublisher struct {
	events []string
	closed bool
}

func (p *recordingPublisher) Publish(ctx context.Context, event publish.Event) error {
	p.events = append(p.events, event.Type)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func setup(t *testing.T, yaml string) (string, *recordingPublisher) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DATA_PROVIDER", "synthetic")
	t.Setenv("REPORT_DIR", dir)

	pub := &recordingPublisher{}
	prev := newPublisher
	newPublisher = func(ctx context.Context, url, stream string) (publish.Publisher, error) {
		return pub, nil
	}
	t.Cleanup(func() { newPublisher = prev })
	return path, pub
}

func TestRun(t *testing.T) {
	path, pub := setup(t, "fallback: \"\"\nseed: 7\nverbosity: error\n")

	var out bytes.Buffer
	if code := run([]string{"-config", path}, &out); code != 0 {
		t.Fatalf("exit code %d", code)
	}
	if !strings.HasPrefix(out.String(), "Strike\tType") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
	if len(pub.events) != 2 || !pub.closed {
		t.Fatalf("events %v, closed %v", pub.events, pub.closed)
	}
}

func TestRun_FailureClosesPublisher(t *testing.T) {
	// synthetic prices never reach this volatility floor
	path, pub := setup(t, "fallback: \"\"\nseed: 7\nverbosity: error\nmin_volatility: 2.9\nmax_volatility: 3\n")

	var out bytes.Buffer
	if code := run([]string{"-config", path}, &out); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !pub.closed {
		t.Fatal("publisher must be closed when the run fails")
	}
	if out.Len() != 0 {
		t.Fatalf("nothing should be printed on failure, got:\n%s", out.String())
	}
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	if code := run([]string{"-version"}, &out); code != 0 {
		t.Fatalf("exit code %d", code)
	}
	if strings.TrimSpace(out.String()) != version {
		t.Fatalf("unexpected version output %q", out.String())
	}
}

func TestRun_BadFlag(t *testing.T) {
	if code := run([]string{"-no-such-flag"}, &bytes.Buffer{}); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}
