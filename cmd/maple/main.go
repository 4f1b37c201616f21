// Package main is the entry point for the Maple player daemon.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/maple-music/maple/internal/config"
	"github.com/maple-music/maple/internal/domain/artwork"
	"github.com/maple-music/maple/internal/domain/catalog"
	"github.com/maple-music/maple/internal/domain/player"
	"github.com/maple-music/maple/internal/domain/publisher"
	"github.com/maple-music/maple/internal/infra/audio"
	"github.com/maple-music/maple/internal/infra/backend"
	"github.com/maple-music/maple/internal/infra/mpd"
	"github.com/maple-music/maple/internal/infra/webhook"
	"github.com/maple-music/maple/internal/transport/backendsock"
	"github.com/maple-music/maple/internal/transport/socketio"
	"github.com/maple-music/maple/internal/version"
)

func main() {
	cfg := config.Load()

	// Command line flags, env-derived defaults
	port := flag.String("port", cfg.HTTPPort, "HTTP server port")
	dataDir := flag.String("data-dir", cfg.DataDir, "Data directory for catalog, artwork and settings")
	backendURL := flag.String("backend-url", cfg.BackendURL, "Social backend base URL")
	socketURL := flag.String("socket-url", cfg.SocketURL, "Social backend websocket URL")
	mpdHost := flag.String("mpd-host", cfg.MPDHost, "MPD host for the external library")
	mpdPort := flag.Int("mpd-port", cfg.MPDPort, "MPD port")
	mpdPassword := flag.String("mpd-password", cfg.MPDPassword, "MPD password")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Print startup banner
	versionInfo := version.GetInfo()
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", versionInfo.String())
	log.Info().Msg("  Maple Player Daemon")
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Str("port", *port).
		Str("data_dir", *dataDir).
		Str("backend_url", *backendURL).
		Str("mpd_host", *mpdHost).
		Int("mpd_port", *mpdPort).
		Msg("Configuration")

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", *dataDir).Msg("Cannot create data directory")
	}

	// Storage
	artStore, err := artwork.NewStore(filepath.Join(*dataDir, "images"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open artwork store")
	}
	catStore, err := catalog.NewStore(*dataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open catalog store")
	}
	settings := config.NewSettings(*dataDir)

	// Local audio and catalog import
	audioPlayer := audio.NewPlayer()
	loader := catalog.NewLoader(catStore, artStore, audioPlayer)

	// Backend REST client and socket channel
	backendClient, err := backend.NewClient(*backendURL, *dataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create backend client")
	}
	sock := backendsock.NewClient(*socketURL)
	sock.OnFriendRequest(func(ev backendsock.FriendEvent) {
		if !settings.AutoAcceptFriends() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := backendClient.AcceptFriendRequest(ctx, ev.ID); err != nil {
			log.Warn().Err(err).Str("username", ev.Username).Msg("Auto-accept failed")
		}
	})

	// Now-playing publisher and engine
	pub := publisher.New(backendClient, webhook.NewClient(), sock, artStore, settings)
	engine := player.NewEngine(audioPlayer, player.WithPublisher(pub))
	defer engine.Close()

	// External library adapter; connects lazily on first use
	mpdClient := mpd.NewClient(*mpdHost, *mpdPort, *mpdPassword)
	defer mpdClient.Close()
	external := mpd.NewAdapter(mpdClient)

	// Socket.io control surface
	socketServer, err := socketio.NewServer(engine)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Socket.io server")
	}
	defer socketServer.Close()

	// Reopen the backend channel if a previous session is still valid
	if settings.SocketEnabled() && len(backendClient.SessionCookies()) > 0 {
		sock.SetCookies(backendClient.SessionCookies())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := sock.Connect(ctx); err != nil {
			log.Warn().Err(err).Msg("Backend socket connect failed")
		}
		cancel()
	}

	a := &api{
		engine:   engine,
		loader:   loader,
		catalog:  catStore,
		artwork:  artStore,
		backend:  backendClient,
		sock:     sock,
		settings: settings,
		external: external,
		bridge:   socketServer,
	}

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      corsMiddleware(a.routes()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down...")
		sock.Close()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", ":"+*port).Msg("HTTP server listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("HTTP server error")
	}

	log.Info().Msg("Server stopped")
}
