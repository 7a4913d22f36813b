// Package logging wires structured logging through logrus, keeping a
// cosmetic startup banner alongside it (§2 ambient stack).
package logging

import (
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
)

// New returns a text-formatted logrus logger at info level, the default
// every cmd/server entrypoint starts with.
func New() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetLevel(logrus.InfoLevel)
	return log
}

// WithAddr returns the per-client entry every session's log lines are
// built from, carrying the remote address as a structured field instead of
// interpolating it into the message (§7).
func WithAddr(log *logrus.Logger, addr *net.UDPAddr) *logrus.Entry {
	return log.WithField("addr", addr.String())
}

// Banner prints the startup banner. It is cosmetic terminal output, not a
// log line, so it goes straight to stdout rather than through the logger.
func Banner(title, version string) {
	const border = "═══════════════════════════════════════════════════════════"
	fmt.Printf("\n╔%s╗\n", border)
	fmt.Printf("║ %-61s ║\n", title)
	fmt.Printf("║ %-61s ║\n", fmt.Sprintf("version %s", version))
	fmt.Printf("╚%s╝\n\n", border)
}
