package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(os.Stdout)

	SetLevel(Warning)
	defer SetLevel(Notice)

	logger := New("level test")
	logger.Info("hidden message")
	logger.Warningf("visible %s", "message")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Fatalf("expected info message to be filtered out; got %q", out)
	}
	if !strings.Contains(out, "visible message") || !strings.Contains(out, "[level test]") {
		t.Fatalf("expected warning message with module name to be logged; got %q", out)
	}
}

func TestModuleLevel(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(os.Stdout)

	SetModuleLevel("chatty", Debug)
	New("chatty").Debug("debug output")
	New("quiet").Debug("suppressed output")

	out := buf.String()
	if !strings.Contains(out, "debug output") {
		t.Fatalf("expected debug output for module with debug level; got %q", out)
	}
	if strings.Contains(out, "suppressed output") {
		t.Fatalf("expected debug output to be suppressed for module at default level; got %q", out)
	}
}
