package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
	}{
		{"error", Error},
		{"WARN", Warn},
		{" info ", Info},
		{"debug", Debug},
		{"trace", Trace},
		{"3", Debug},
	}
	for _, c := range cases {
		got, err := ParseLevel(c.in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): unexpected error: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseLevel(%q) = %d, want %d", c.in, got, c.want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if _, err := ParseLevel("9"); err == nil {
		t.Fatal("expected error for out of range level")
	}
}

func TestVerbosityFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	prev := Verbosity()
	defer SetVerbosity(prev)

	SetVerbosity(Info)
	Debugf("hidden %d", 1)
	Infof("shown %d", 2)
	Errorf("boom")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug message leaked at info level: %s", out)
	}
	if !strings.Contains(out, "[INFO]  shown 2") {
		t.Fatalf("missing info message: %s", out)
	}
	if !strings.Contains(out, "[ERROR] boom") {
		t.Fatalf("missing error message: %s", out)
	}
	if !strings.Contains(out, "logger_test.go") {
		t.Fatalf("expected caller file in output: %s", out)
	}
}
