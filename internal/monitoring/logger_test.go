package monitoring

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("[ukf] test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// nil installs a no-op
	called = false
	SetLogger(nil)
	Logf("[ukf] test message")
	if called {
		t.Error("Previous logger was called after SetLogger(nil)")
	}
}

func TestSetOutput(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var buf bytes.Buffer
	SetOutput(&buf)
	Logf("[ukf] rejected %s measurement", "R")

	if !strings.Contains(buf.String(), "[ukf] rejected R measurement") {
		t.Errorf("Expected message in output, got %q", buf.String())
	}

	buf.Reset()
	SetOutput(nil)
	Logf("muted")
	if buf.Len() != 0 {
		t.Errorf("Expected no output after SetOutput(nil), got %q", buf.String())
	}
}
