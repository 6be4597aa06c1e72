package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type role string

func (r role) String() string { return string(r) }

func newBuffered() (Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))), &buf
}

func TestRedactedNeverPrintsValue(t *testing.T) {
	l, buf := newBuffered()

	l.With("role", "decryptor").Debug(context.Background(), "oracle call", Redacted("plaintext"))

	out := buf.String()
	require.Contains(t, out, "plaintext="+redactedPlaceholder)
	require.Contains(t, out, "role=decryptor")
}

func TestForParty(t *testing.T) {
	l, buf := newBuffered()

	ForParty(l, role("helper"), "").Info(context.Background(), "one")
	ForParty(l, role("decryptor"), "server").Info(context.Background(), "two", Exponents(0, -13))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "msg=one party=helper")
	require.NotContains(t, lines[0], "component=")
	require.Contains(t, lines[1], "party=decryptor component=server")
	require.Contains(t, lines[1], `exponents="[0 -13]"`)
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error(context.Background(), "dropped")
	require.NotNil(t, l.With("k", "v"))
	require.NotNil(t, ForParty(nil, role("helper"), ""))
}
