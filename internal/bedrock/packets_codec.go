package bedrock

func algorithmTag(a Algorithm) uint16 {
	if a == AlgorithmSnappy {
		return 1
	}
	return 0
}

func algorithmFromTag(tag uint16) Algorithm {
	if tag == 1 {
		return AlgorithmSnappy
	}
	return AlgorithmDeflate
}

func (p *RequestNetworkSettings) Encode() []byte {
	w := NewWriter()
	w.Int32(p.ClientProtocol)
	return w.Bytes()
}

func DecodeRequestNetworkSettings(body []byte) (*RequestNetworkSettings, error) {
	r := NewReader(body)
	v, err := r.VarInt32()
	if err != nil {
		return nil, err
	}
	return &RequestNetworkSettings{ClientProtocol: v}, nil
}

func (p *NetworkSettings) Encode() []byte {
	w := NewWriter()
	w.Uint16(p.CompressionThreshold)
	w.Uint16(algorithmTag(p.CompressionAlgorithm))
	w.Bool(p.ThrottleEnabled)
	w.Uint8(p.ThrottleThreshold)
	w.Float32(p.ThrottleScalar)
	return w.Bytes()
}

func (p *Login) Encode() []byte {
	w := NewWriter()
	w.Int32(p.ClientProtocol)
	w.Strings(p.IdentityChain)
	w.String(p.RawClientData)
	return w.Bytes()
}

func DecodeLogin(body []byte) (*Login, error) {
	r := NewReader(body)
	proto, err := r.VarInt32()
	if err != nil {
		return nil, err
	}
	chain, err := r.Strings()
	if err != nil {
		return nil, err
	}
	raw, err := r.String()
	if err != nil {
		return nil, err
	}
	return &Login{ClientProtocol: proto, IdentityChain: chain, RawClientData: raw}, nil
}

func (p *ClientToServerHandshake) Encode() []byte { return nil }

func (p *ServerToClientHandshake) Encode() []byte {
	w := NewWriter()
	w.String(p.JWT)
	return w.Bytes()
}

func (p *PlayStatusPacket) Encode() []byte {
	w := NewWriter()
	w.Int32(p.Status)
	return w.Bytes()
}

func (p *ResourcePacksInfo) Encode() []byte {
	w := NewWriter()
	w.Bool(p.MustAccept)
	w.VarUint32(uint32(len(p.Packs)))
	for _, pack := range p.Packs {
		w.String(pack.UUID)
		w.String(pack.Version)
		w.Uint64(pack.Size)
	}
	return w.Bytes()
}

func (p *ResourcePackStack) Encode() []byte {
	w := NewWriter()
	w.Bool(p.MustAccept)
	return w.Bytes()
}

func (p *ResourcePackClientResponse) Encode() []byte {
	w := NewWriter()
	w.Uint8(p.Status)
	w.Strings(p.PackIDs)
	return w.Bytes()
}

func DecodeResourcePackClientResponse(body []byte) (*ResourcePackClientResponse, error) {
	r := NewReader(body)
	status, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	ids, err := r.Strings()
	if err != nil {
		return nil, err
	}
	return &ResourcePackClientResponse{Status: status, PackIDs: ids}, nil
}

func (p *ClientCacheStatus) Encode() []byte {
	w := NewWriter()
	w.Bool(p.SupportsCache)
	return w.Bytes()
}

func DecodeClientCacheStatus(body []byte) (*ClientCacheStatus, error) {
	r := NewReader(body)
	v, err := r.Bool()
	if err != nil {
		return nil, err
	}
	return &ClientCacheStatus{SupportsCache: v}, nil
}

func (p *StartGame) Encode() []byte {
	w := NewWriter()
	w.Int64(p.EntityUniqueID)
	w.Uint64(p.EntityRuntimeID)
	w.Int32(p.PlayerGameMode)
	w.Float32(p.PlayerPosition[0])
	w.Float32(p.PlayerPosition[1])
	w.Float32(p.PlayerPosition[2])
	w.Int64(p.WorldSeed)
	w.String(p.WorldName)
	w.Int32(p.WorldGameMode)
	w.Int32(p.Difficulty)
	w.Int32(p.PermissionLevel)
	return w.Bytes()
}

func (p *CreativeContent) Encode() []byte        { return NewWriter().Bytes() }
func (p *BiomeDefinitionList) Encode() []byte    { return NewWriter().Bytes() }

func (p *AvailableCommands) Encode() []byte {
	w := NewWriter()
	w.Strings(p.Names)
	return w.Bytes()
}

func (p *SetLocalPlayerAsInitialized) Encode() []byte {
	w := NewWriter()
	w.Uint64(p.RuntimeID)
	return w.Bytes()
}

func DecodeSetLocalPlayerAsInitialized(body []byte) (*SetLocalPlayerAsInitialized, error) {
	r := NewReader(body)
	id, err := r.Uint64()
	if err != nil {
		return nil, err
	}
	return &SetLocalPlayerAsInitialized{RuntimeID: id}, nil
}

func (p *Disconnect) Encode() []byte {
	w := NewWriter()
	w.String(string(p.Reason))
	w.String(p.Message)
	return w.Bytes()
}

func (p *ChunkRadiusRequest) Encode() []byte {
	w := NewWriter()
	w.Int32(p.Radius)
	return w.Bytes()
}

func DecodeChunkRadiusRequest(body []byte) (*ChunkRadiusRequest, error) {
	r := NewReader(body)
	v, err := r.VarInt32()
	if err != nil {
		return nil, err
	}
	return &ChunkRadiusRequest{Radius: v}, nil
}

func (p *ChunkRadiusReply) Encode() []byte {
	w := NewWriter()
	w.Int32(p.AllowedRadius)
	return w.Bytes()
}

func (p *Text) Encode() []byte {
	w := NewWriter()
	w.String(p.Message)
	return w.Bytes()
}

func DecodeText(body []byte) (*Text, error) {
	r := NewReader(body)
	s, err := r.String()
	if err != nil {
		return nil, err
	}
	return &Text{Message: s}, nil
}
