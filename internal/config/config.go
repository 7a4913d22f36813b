// Package config holds the server's static configuration (§6).
package config

import "github.com/bedrocknet/beacon/internal/bedrock"

// Throttle mirrors the NetworkSettings throttle fields the server echoes
// back to every client at login (§6 throttle.*).
type Throttle struct {
	Enabled   bool
	Threshold uint8
	Scalar    float32
}

// Compression selects the algorithm and the minimum body size that
// triggers it (§6 compression.*).
type Compression struct {
	Algorithm bedrock.Algorithm
	Threshold int
}

// Config is every recognised server option (§6).
type Config struct {
	IPv4Addr          string
	IPv6Addr          string
	MaxConnections    int
	Compression       Compression
	Throttle          Throttle
	MaxRenderDistance int32
	MOTD              func() string
}

// Default returns the configuration the server boots with absent an
// operator-supplied override, mirroring loadConfig()'s hardcoded defaults.
func Default() Config {
	return Config{
		IPv4Addr:       "0.0.0.0:19132",
		MaxConnections: 100,
		Compression: Compression{
			Algorithm: bedrock.AlgorithmDeflate,
			Threshold: 256,
		},
		Throttle: Throttle{
			Enabled:   true,
			Threshold: 10,
			Scalar:    1.0,
		},
		MaxRenderDistance: 16,
		MOTD: func() string {
			return "A Bedrock Server - Built with Go"
		},
	}
}
