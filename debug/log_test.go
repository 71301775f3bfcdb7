package debug

import (
	"bytes"
	"strings"
	"testing"
)

func TestEnableToFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := EnableTo(&buf, "info"); err != nil {
		t.Fatalf("EnableTo: %v", err)
	}
	defer Disable()

	Log("pool", "hidden %d", 1)
	Info("player", "shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden 1") {
		t.Errorf("debug message written at info level: %q", out)
	}
	if !strings.Contains(out, "shown 2") || !strings.Contains(out, "player") {
		t.Errorf("info message missing: %q", out)
	}
}

func TestEnableToRejectsUnknownLevel(t *testing.T) {
	if err := EnableTo(&bytes.Buffer{}, "loud"); err == nil {
		Disable()
		t.Fatal("expected error for unknown level")
	}
}

func TestDisabledIsSilent(t *testing.T) {
	var buf bytes.Buffer
	if err := EnableTo(&buf, "debug"); err != nil {
		t.Fatal(err)
	}
	Disable()
	buf.Reset()

	Error("voice", "nobody hears this")
	if buf.Len() != 0 {
		t.Errorf("wrote after Disable: %q", buf.String())
	}
	if Enabled() {
		t.Error("Enabled() after Disable")
	}
}

func TestLogEvery(t *testing.T) {
	var buf bytes.Buffer
	if err := EnableTo(&buf, "debug"); err != nil {
		t.Fatal(err)
	}
	defer Disable()

	for i := 0; i < 6; i++ {
		LogEvery(3, "tick", "beat")
	}
	if got := strings.Count(buf.String(), "beat (every 3"); got != 2 {
		t.Errorf("LogEvery wrote %d lines, want 2\n%s", got, buf.String())
	}
}
