package orchestrator

import "github.com/bedrocknet/beacon/internal/bedrock"

// CommandService parses and executes chat/console commands. The parser and
// the command table are an external collaborator's concern; the
// orchestrator only needs a narrow seam to dispatch through and close on
// shutdown.
type CommandService interface {
	Execute(clientAddr string, text string) error
	Close() error
}

// LevelService owns world/chunk state. Like CommandService, its storage
// and generation logic live outside this module; the orchestrator holds a
// handle, wires it into each client's protocol session as a
// bedrock.SpawnProvider, and closes it on shutdown.
type LevelService interface {
	bedrock.SpawnProvider
	Close() error
}

// NoopCommandService lets the orchestrator run standalone without a real
// command subsystem wired in.
type NoopCommandService struct{}

func (NoopCommandService) Execute(string, string) error { return nil }
func (NoopCommandService) Close() error                 { return nil }

// NoopLevelService lets the orchestrator run standalone without a real
// level subsystem wired in; spawning falls back to bedrock.StubSpawnProvider.
type NoopLevelService struct{}

func (NoopLevelService) Spawn(identity bedrock.Identity) (bedrock.SpawnInfo, error) {
	return bedrock.StubSpawnProvider{}.Spawn(identity)
}
func (NoopLevelService) Close() error { return nil }
