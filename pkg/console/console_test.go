package console

import (
	"bytes"
	"strings"
	"testing"
)

func TestConsole_ArgumentsKeptVerbatim(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.Success("Target user found: %s", "**Al**")

	if !strings.Contains(buf.String(), "✓ Target user found: **Al**") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestConsole_PercentInArgument(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.Info("%s", "100% done")

	if !strings.Contains(buf.String(), "100% done") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
