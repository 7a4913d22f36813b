package bedrock

import (
	"sync"
)

// loginStage is the expected_packet_id gate from §4.6: a Session only
// accepts one packet kind at a time while logging in, and any other packet
// id seen in that window is a protocol violation.
type loginStage int

const (
	stageAwaitingNetworkSettingsRequest loginStage = iota
	stageAwaitingLogin
	stageAwaitingHandshake
	stageAwaitingCacheStatus
	stageAwaitingResourcePackResponse
	stageInitialized
)

// Session is the per-client Bedrock protocol state sitting above the
// transport session: compression/encryption negotiated at login, the
// login-sequence gate, and the verified identity once login completes
// (§3 Session state, §9 write-once cells for singleton state — identity,
// client info and the encryptor are set exactly once and read many times,
// so they need no lock beyond what guards the stage field itself).
type Session struct {
	mu sync.Mutex

	stage loginStage

	compressionEnabled   bool
	compressionAlgorithm Algorithm
	compressionThreshold int

	throttleEnabled   bool
	throttleThreshold uint8
	throttleScalar    float32
	maxRenderDistance int32

	encryptor *Encryptor

	identity   *Identity
	clientInfo *ClientInfo

	verifier IdentityVerifier
	level    SpawnProvider
}

// NewSession creates a Bedrock session gated at the start of the login
// sequence, using verifier to validate the identity chain once a Login
// packet arrives. algo/threshold are the configured compression settings
// (§6 compression.*); they take effect once the login sequence reaches
// RequestNetworkSettings, not immediately.
func NewSession(verifier IdentityVerifier, algo Algorithm, threshold int) *Session {
	if verifier == nil {
		verifier = StubIdentityVerifier{}
	}
	return &Session{
		stage:                stageAwaitingNetworkSettingsRequest,
		compressionAlgorithm: algo,
		compressionThreshold: threshold,
		verifier:             verifier,
		level:                StubSpawnProvider{},
	}
}

// SetLevelProvider installs the source of spawn-sequence world context.
// Called once, before any packets flow; a nil level falls back to
// StubSpawnProvider so a session is runnable without a real level
// subsystem wired in (§6 Open Question: level access is pluggable, not
// mandatory).
func (s *Session) SetLevelProvider(level SpawnProvider) {
	if level == nil {
		level = StubSpawnProvider{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = level
}

// Initialized reports whether the client has completed the login sequence,
// which happens once its ResourcePackClientResponse has been handled;
// SetLocalPlayerAsInitialized plays no part in it.
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage == stageInitialized
}

// Identity returns the verified identity, if login has reached that point.
func (s *Session) Identity() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// EnableEncryption installs the session's encryptor. Called once, from the
// handshake transition; a second call is a bug in the caller, not a
// protocol condition, so it panics rather than returning an error.
func (s *Session) EnableEncryption(e *Encryptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.encryptor != nil {
		panic("bedrock: encryption enabled twice on the same session")
	}
	s.encryptor = e
}

func (s *Session) encryptorLocked() *Encryptor { return s.encryptor }

// Encrypting reports whether the session has installed an encryptor, so
// callers (and tests) can confirm the login handshake actually switched the
// session into encrypted mode instead of assuming it from the packet
// sequence alone.
func (s *Session) Encrypting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encryptor != nil
}

// EnableCompression records the algorithm and threshold the session
// negotiated via NetworkSettings, so the framer knows how to read and
// write subsequent packets (§4.5).
func (s *Session) EnableCompression(algo Algorithm, threshold int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compressionEnabled = true
	s.compressionAlgorithm = algo
	s.compressionThreshold = threshold
}

// SetThrottle records the throttle values NetworkSettings echoes back to
// the client (§6 throttle.*). Call before the RequestNetworkSettings
// exchange; later calls have no effect on an already-sent reply.
func (s *Session) SetThrottle(enabled bool, threshold uint8, scalar float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.throttleEnabled = enabled
	s.throttleThreshold = threshold
	s.throttleScalar = scalar
}

// SetMaxRenderDistance bounds how large a radius ChunkRadiusReply will
// ever grant (§6 max_render_distance).
func (s *Session) SetMaxRenderDistance(max int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxRenderDistance = max
}

