package commands

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(log)
}

func TestExecuteKnownCommand(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Execute("127.0.0.1:1", "/ping"))
}

func TestExecuteUnknownCommandIsIgnored(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Execute("127.0.0.1:1", "/nope"))
}

func TestExecuteNonCommandTextIsIgnored(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Execute("127.0.0.1:1", "just chatting"))
}

func TestParseStripsPrefixAndLowercases(t *testing.T) {
	name, args := parse("/HELP arg1 arg2")
	require.Equal(t, "help", name)
	require.Equal(t, []string{"arg1", "arg2"}, args)
}

func TestParseRejectsTextWithoutSlash(t *testing.T) {
	name, args := parse("hello there")
	require.Equal(t, "", name)
	require.Nil(t, args)
}

func TestClose(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Close())
}
