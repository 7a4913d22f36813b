package bedrock

import "fmt"

// ProtocolError is returned by Session.Handle when the login sequence (or
// any later exchange) must terminate the connection; Reason is what the
// orchestrator logs and what Disconnect.Reason gets set to (§4.6, §7).
type ProtocolError struct {
	Reason  DisconnectReason
	Message string
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("%s: %s", e.Reason, e.Message) }

// Outbound is one packet the caller must frame and send in response to
// whatever was just handled.
type Outbound struct {
	ID   PacketID
	Body []byte
}

// SupportedClientProtocol is the only protocol version this implementation
// accepts; a mismatch fails the handshake with the client/server-specific
// PlayStatus rather than silently proceeding (§4.6).
const SupportedClientProtocol = 766

// Handle advances the login state machine (or, once initialized, passes
// steady-state packets through to their narrow handlers) given one decoded
// packet. It returns the packets the caller must send in response, or a
// *ProtocolError naming why the session must be torn down.
func (s *Session) Handle(id PacketID, body []byte) ([]Outbound, error) {
	s.mu.Lock()
	stage := s.stage
	s.mu.Unlock()

	switch stage {
	case stageAwaitingNetworkSettingsRequest:
		return s.handleNetworkSettingsRequest(id, body)
	case stageAwaitingLogin:
		return s.handleLogin(id, body)
	case stageAwaitingHandshake:
		return s.handleHandshake(id, body)
	case stageAwaitingCacheStatus:
		return s.handleCacheStatus(id, body)
	case stageAwaitingResourcePackResponse:
		return s.handleResourcePackResponse(id, body)
	default:
		return s.handleSteadyState(id, body)
	}
}

func (s *Session) advance(next loginStage) {
	s.mu.Lock()
	s.stage = next
	s.mu.Unlock()
}

func (s *Session) handleNetworkSettingsRequest(id PacketID, body []byte) ([]Outbound, error) {
	if id != IDRequestNetworkSettings {
		return nil, &ProtocolError{ReasonUnexpectedPacket, "expected RequestNetworkSettings"}
	}
	req, err := DecodeRequestNetworkSettings(body)
	if err != nil {
		return nil, &ProtocolError{ReasonBadPacket, err.Error()}
	}
	if req.ClientProtocol != SupportedClientProtocol {
		status := PlayStatusFailedServer
		if req.ClientProtocol < SupportedClientProtocol {
			status = PlayStatusFailedClient
		}
		out := (&PlayStatusPacket{Status: int32(status)}).Encode()
		return []Outbound{{IDPlayStatus, out}}, &ProtocolError{ReasonInvalidPacket, "client protocol mismatch"}
	}

	settings := &NetworkSettings{
		CompressionThreshold: uint16(s.compressionThreshold),
		CompressionAlgorithm: s.compressionAlgorithm,
		ThrottleEnabled:      s.throttleEnabled,
		ThrottleThreshold:    s.throttleThreshold,
		ThrottleScalar:       s.throttleScalar,
	}
	s.EnableCompression(s.compressionAlgorithm, s.compressionThreshold)
	s.advance(stageAwaitingLogin)
	return []Outbound{{IDNetworkSettings, settings.Encode()}}, nil
}

func (s *Session) handleLogin(id PacketID, body []byte) ([]Outbound, error) {
	if id != IDLogin {
		return nil, &ProtocolError{ReasonUnexpectedPacket, "expected Login"}
	}
	login, err := DecodeLogin(body)
	if err != nil {
		return nil, &ProtocolError{ReasonBadPacket, err.Error()}
	}
	identity, clientInfo, err := s.verifier.Verify(login.IdentityChain, login.RawClientData)
	if err != nil {
		return nil, &ProtocolError{ReasonInvalidPacket, err.Error()}
	}
	s.mu.Lock()
	s.identity = &identity
	s.clientInfo = &clientInfo
	s.mu.Unlock()

	encryptor, err := NewEncryptor(deriveHandshakeKey(identity))
	if err != nil {
		return nil, &ProtocolError{ReasonInternalError, err.Error()}
	}
	s.EnableEncryption(encryptor)

	handshake := (&ServerToClientHandshake{JWT: ""}).Encode()
	s.advance(stageAwaitingHandshake)
	return []Outbound{{IDServerToClientHandshake, handshake}}, nil
}

func (s *Session) handleHandshake(id PacketID, _ []byte) ([]Outbound, error) {
	if id != IDClientToServerHandshake {
		return nil, &ProtocolError{ReasonUnexpectedPacket, "expected ClientToServerHandshake"}
	}
	s.advance(stageAwaitingCacheStatus)
	success := (&PlayStatusPacket{Status: PlayStatusLoginSuccess}).Encode()
	info := (&ResourcePacksInfo{}).Encode()
	return []Outbound{
		{IDPlayStatus, success},
		{IDResourcePacksInfo, info},
	}, nil
}

func (s *Session) handleCacheStatus(id PacketID, body []byte) ([]Outbound, error) {
	if id != IDClientCacheStatus {
		return nil, &ProtocolError{ReasonUnexpectedPacket, "expected ClientCacheStatus"}
	}
	if _, err := DecodeClientCacheStatus(body); err != nil {
		return nil, &ProtocolError{ReasonBadPacket, err.Error()}
	}
	s.advance(stageAwaitingResourcePackResponse)
	stack := (&ResourcePackStack{}).Encode()
	return []Outbound{{IDResourcePackStack, stack}}, nil
}

// handleResourcePackResponse is the last stage of login (§4.6): it asks
// the level provider for spawn context (which, as a side effect, publishes
// the client's initial chunks), then builds the StartGame/CreativeContent/
// BiomeDefinitionList/AvailableCommands/PlayStatus sequence that hands the
// client off to steady-state play.
func (s *Session) handleResourcePackResponse(id PacketID, body []byte) ([]Outbound, error) {
	if id != IDResourcePackClientResponse {
		return nil, &ProtocolError{ReasonUnexpectedPacket, "expected ResourcePackClientResponse"}
	}
	if _, err := DecodeResourcePackClientResponse(body); err != nil {
		return nil, &ProtocolError{ReasonBadPacket, err.Error()}
	}

	s.mu.Lock()
	identity := s.identity
	level := s.level
	s.mu.Unlock()
	if identity == nil {
		return nil, &ProtocolError{ReasonInvalidPacket, "resource pack response before identity established"}
	}

	spawn, err := level.Spawn(*identity)
	if err != nil {
		return nil, &ProtocolError{ReasonInternalError, err.Error()}
	}

	s.advance(stageInitialized)

	startGame := (&StartGame{
		EntityUniqueID:  spawn.EntityUniqueID,
		EntityRuntimeID: spawn.EntityRuntimeID,
		PlayerGameMode:  spawn.GameMode,
		PlayerPosition:  spawn.Position,
		WorldSeed:       spawn.WorldSeed,
		WorldName:       spawn.WorldName,
		WorldGameMode:   spawn.GameMode,
		Difficulty:      spawn.Difficulty,
		PermissionLevel: spawn.PermissionLevel,
	}).Encode()
	creative := (&CreativeContent{}).Encode()
	biomes := (&BiomeDefinitionList{}).Encode()
	commands := (&AvailableCommands{Names: spawn.CommandNames}).Encode()
	playStatus := (&PlayStatusPacket{Status: PlayStatusPlayerSpawn}).Encode()

	return []Outbound{
		{IDStartGame, startGame},
		{IDCreativeContent, creative},
		{IDBiomeDefinitionList, biomes},
		{IDAvailableCommands, commands},
		{IDPlayStatus, playStatus},
	}, nil
}

// handleSteadyState covers the narrow set of post-login packets this
// implementation understands; anything else is ignored rather than
// rejected, since the level/command subsystems own most steady-state
// traffic (§1, §4.7).
func (s *Session) handleSteadyState(id PacketID, body []byte) ([]Outbound, error) {
	switch id {
	case IDSetLocalPlayerAsInitialized:
		_, err := DecodeSetLocalPlayerAsInitialized(body)
		if err != nil {
			return nil, &ProtocolError{ReasonBadPacket, err.Error()}
		}
		return nil, nil
	case IDChunkRadiusRequest:
		req, err := DecodeChunkRadiusRequest(body)
		if err != nil {
			return nil, &ProtocolError{ReasonBadPacket, err.Error()}
		}
		allowed := req.Radius
		if s.maxRenderDistance > 0 && allowed > s.maxRenderDistance {
			allowed = s.maxRenderDistance
		}
		reply := (&ChunkRadiusReply{AllowedRadius: allowed}).Encode()
		return []Outbound{{IDChunkRadiusReply, reply}}, nil
	default:
		return nil, nil
	}
}
