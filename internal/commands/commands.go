// Package commands provides a minimal text-command dispatcher for the
// orchestrator's CommandService seam: a handful of server-introspection
// commands that make sense without any level or entity state behind them.
package commands

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Handler runs one command and returns the text that would be sent back
// to the caller. The CommandService interface has no reply channel (reply
// delivery is a level/chat concern outside this module's scope), so
// Registry logs the result instead of sending it anywhere.
type Handler func(clientAddr string, args []string) string

// Command is one registered entry: a name, a short description for help
// text, and the handler that runs it.
type Command struct {
	Name        string
	Description string
	Handler     Handler
}

// Registry is a concrete, minimal orchestrator.CommandService
// implementation: a name -> Command table plus a log sink.
type Registry struct {
	log      *logrus.Logger
	commands map[string]Command
}

// New builds a Registry pre-populated with the built-in commands.
func New(log *logrus.Logger) *Registry {
	r := &Registry{
		log:      log,
		commands: make(map[string]Command),
	}
	r.register(Command{"help", "list available commands", r.cmdHelp})
	r.register(Command{"ping", "check the command channel is alive", r.cmdPing})
	return r
}

func (r *Registry) register(c Command) {
	r.commands[c.Name] = c
}

// Execute parses text as a "/name arg arg..." command line and dispatches
// it to the matching handler. An unregistered command name is logged at
// debug level and ignored, and text without a leading "/" is ignored
// without logging; neither is treated as an error, since chat traffic that
// isn't a command is the common case.
func (r *Registry) Execute(clientAddr string, text string) error {
	name, args := parse(text)
	if name == "" {
		return nil
	}
	cmd, ok := r.commands[name]
	if !ok {
		r.log.WithFields(logrus.Fields{"client": clientAddr, "command": name}).Debug("unknown command")
		return nil
	}
	result := cmd.Handler(clientAddr, args)
	r.log.WithFields(logrus.Fields{"client": clientAddr, "command": name, "result": result}).Info("command executed")
	return nil
}

// Close releases the registry. There is nothing to release today; it
// exists to satisfy orchestrator.CommandService.
func (r *Registry) Close() error { return nil }

func parse(text string) (string, []string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil
	}
	fields := strings.Fields(strings.TrimPrefix(text, "/"))
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

func (r *Registry) cmdHelp(string, []string) string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, "/"+name)
	}
	return "available commands: " + strings.Join(names, ", ")
}

func (r *Registry) cmdPing(clientAddr string, _ []string) string {
	return fmt.Sprintf("pong (%s)", clientAddr)
}
