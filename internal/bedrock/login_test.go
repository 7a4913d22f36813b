package bedrock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func networkSettingsRequest() []byte {
	return (&RequestNetworkSettings{ClientProtocol: SupportedClientProtocol}).Encode()
}

func TestLoginHappySequence(t *testing.T) {
	s := NewSession(StubIdentityVerifier{}, AlgorithmDeflate, 256)

	out, err := s.Handle(IDRequestNetworkSettings, networkSettingsRequest())
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, IDNetworkSettings, out[0].ID)

	login := (&Login{ClientProtocol: SupportedClientProtocol, IdentityChain: []string{"steve"}}).Encode()
	out, err = s.Handle(IDLogin, login)
	require.NoError(t, err)
	require.Equal(t, IDServerToClientHandshake, out[0].ID)
	require.True(t, s.Encrypting(), "handleLogin must install an encryptor")

	out, err = s.Handle(IDClientToServerHandshake, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)

	cacheStatus := (&ClientCacheStatus{SupportsCache: false}).Encode()
	_, err = s.Handle(IDClientCacheStatus, cacheStatus)
	require.NoError(t, err)

	resp := (&ResourcePackClientResponse{Status: 0}).Encode()
	out, err = s.Handle(IDResourcePackClientResponse, resp)
	require.NoError(t, err)
	require.True(t, s.Initialized())

	require.Len(t, out, 5)
	wantIDs := []PacketID{IDStartGame, IDCreativeContent, IDBiomeDefinitionList, IDAvailableCommands, IDPlayStatus}
	for i, want := range wantIDs {
		require.Equal(t, want, out[i].ID, "packet %d", i)
	}
	require.NotEmpty(t, out[0].Body, "StartGame body must not be empty")

	identity, ok := s.Identity()
	require.True(t, ok)
	require.Equal(t, "steve", identity.DisplayName)
}

// TestLoginRejectsReorderedSequence exercises property 6: any deviation
// from the expected packet order at any stage disconnects with
// ReasonUnexpectedPacket, regardless of which stage it happens at.
func TestLoginRejectsReorderedSequence(t *testing.T) {
	stages := []func(s *Session) (PacketID, []byte){
		func(s *Session) (PacketID, []byte) { return IDLogin, (&Login{}).Encode() },
		func(s *Session) (PacketID, []byte) {
			s.Handle(IDRequestNetworkSettings, networkSettingsRequest())
			return IDClientToServerHandshake, nil
		},
		func(s *Session) (PacketID, []byte) {
			s.Handle(IDRequestNetworkSettings, networkSettingsRequest())
			s.Handle(IDLogin, (&Login{ClientProtocol: SupportedClientProtocol}).Encode())
			return IDClientCacheStatus, (&ClientCacheStatus{}).Encode()
		},
	}

	for i, setup := range stages {
		s := NewSession(StubIdentityVerifier{}, AlgorithmDeflate, 256)
		id, body := setup(s)
		_, err := s.Handle(id, body)
		require.Error(t, err, "case %d", i)
		var protoErr *ProtocolError
		require.ErrorAs(t, err, &protoErr)
		require.Equal(t, ReasonUnexpectedPacket, protoErr.Reason)
	}
}

func TestLoginRejectsProtocolMismatch(t *testing.T) {
	s := NewSession(StubIdentityVerifier{}, AlgorithmDeflate, 256)
	req := (&RequestNetworkSettings{ClientProtocol: SupportedClientProtocol + 1}).Encode()
	out, err := s.Handle(IDRequestNetworkSettings, req)
	require.Error(t, err)
	require.Len(t, out, 1)
	require.Equal(t, IDPlayStatus, out[0].ID)
}
