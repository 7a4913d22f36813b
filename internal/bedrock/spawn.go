package bedrock

// SpawnInfo is the world context handleResourcePackResponse needs to build
// the post-login spawn packet sequence: entity ids, starting position, and
// world metadata. Chunk/block/biome storage itself lives outside this
// package (§1); SpawnInfo only carries what StartGame/AvailableCommands put
// on the wire.
type SpawnInfo struct {
	EntityUniqueID  int64
	EntityRuntimeID uint64
	Position        [3]float32
	WorldSeed       int64
	WorldName       string
	GameMode        int32
	Difficulty      int32
	PermissionLevel int32
	CommandNames    []string
}

// SpawnProvider supplies the spawn sequence's world context once login
// reaches ResourcePackClientResponse, and is expected to publish whatever
// chunks the client needs to render its spawn point as a side effect of
// Spawn. Real chunk generation/storage is an external collaborator's
// concern (§1); this is the seam a level subsystem plugs into.
type SpawnProvider interface {
	Spawn(identity Identity) (SpawnInfo, error)
}

// StubSpawnProvider returns a fixed flat-world spawn with no registered
// commands and no chunk publishing, so a session reaches the initialized
// state without a real level subsystem wired in (§1).
type StubSpawnProvider struct{}

func (StubSpawnProvider) Spawn(Identity) (SpawnInfo, error) {
	return SpawnInfo{
		EntityUniqueID:  1,
		EntityRuntimeID: 1,
		WorldName:       "world",
		Difficulty:      1,
		PermissionLevel: 1,
	}, nil
}
