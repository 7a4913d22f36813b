package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bedrocknet/beacon/internal/bedrock"
	"github.com/bedrocknet/beacon/internal/commands"
	"github.com/bedrocknet/beacon/internal/config"
	"github.com/bedrocknet/beacon/internal/logging"
	"github.com/bedrocknet/beacon/internal/metrics"
	"github.com/bedrocknet/beacon/internal/orchestrator"
)

const metricsAddr = "127.0.0.1:9132"

const version = "1.0.0"

func main() {
	logging.Banner("Bedrock Server - Built with Go", version)

	log := logging.New()
	cfg := config.Default()
	m := metrics.New()
	registry := prometheus.NewRegistry()
	registry.MustRegister(m)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.WithError(err).Warn("metrics server stopped")
		}
	}()

	log.WithFields(map[string]interface{}{
		"addr":              cfg.IPv4Addr,
		"max_connections":   cfg.MaxConnections,
		"compression":       cfg.Compression.Algorithm,
		"max_render_dist":   cfg.MaxRenderDistance,
	}).Info("configuration loaded")

	in := orchestrator.New(cfg, log, m, bedrock.StubIdentityVerifier{}, commands.New(log), nil)
	in.Events().Register(orchestrator.EventClientConnected, func(e orchestrator.Event) {
		log.WithField("client", e.ClientAddr).Info("client connected")
	})
	in.Events().Register(orchestrator.EventClientDisconnected, func(e orchestrator.Event) {
		log.WithField("client", e.ClientAddr).Info("client disconnected")
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	errChan := make(chan error, 1)
	go func() {
		if err := in.Start(); err != nil {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		log.WithError(err).Fatal("server error")
	case sig := <-sigChan:
		log.WithField("signal", sig.String()).Warn("received signal, shutting down")
		in.Shutdown()
		log.Info("server stopped")
	}
}
