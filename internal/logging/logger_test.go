package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStdLoggerFormatsFields(t *testing.T) {
	var buf bytes.Buffer
	base := log.New(&buf, "", 0)
	l := &StdLogger{base: base}

	l.Info("opportunity stored", Fields{"id": "o1", "chain": "ethereum"})

	out := buf.String()
	require.True(t, strings.Contains(out, "INFO opportunity stored"))
	require.True(t, strings.Contains(out, "chain=ethereum"))
	require.True(t, strings.Contains(out, "id=o1"))
}

func TestStdLoggerNoFields(t *testing.T) {
	var buf bytes.Buffer
	base := log.New(&buf, "", 0)
	l := &StdLogger{base: base}

	l.Warn("no fields here", nil)

	require.Equal(t, "WARN no fields here\n", buf.String())
}

func TestNopDiscardsEverything(t *testing.T) {
	var n Nop
	n.Debug("x", Fields{"a": 1})
	n.Info("x", nil)
	n.Warn("x", nil)
	n.Error("x", nil)
}
