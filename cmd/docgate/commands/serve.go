package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/docgate/docgate/internal/config"
	"github.com/docgate/docgate/internal/logging"
	"github.com/docgate/docgate/internal/server"
)

var (
	servePort     int
	serveHostname string
	serveNoWatch  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the docgate HTTP server",
	Long: `Start docgate as a server that exposes the gateway over HTTP.

Calls stream as server-sent events when the client sends
Accept: text/event-stream. Config files are watched and reloaded
unless --no-watch is given.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default: server.port or 8080)")
	serveCmd.Flags().StringVar(&serveHostname, "hostname", "", "Hostname to listen on (default: server.hostname or 127.0.0.1)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not reload config files on change")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(true)
	if err != nil {
		return err
	}
	defer a.close()

	serverConfig := server.ConfigFrom(a.config)
	if servePort != 0 {
		serverConfig.Port = servePort
	}
	if serveHostname != "" {
		serverConfig.Hostname = serveHostname
	}

	srv := server.New(serverConfig, a.gateway)

	if !serveNoWatch {
		watcher, err := config.NewWatcher(a.dir, a.gateway.Reload)
		if err != nil {
			logging.Warn().Err(err).Msg("Config watcher disabled")
		} else {
			watcher.Start()
			defer watcher.Stop()
		}
	}

	logging.Info().
		Str("version", Version).
		Str("directory", a.dir).
		Strs("providers", a.gateway.Providers()).
		Msg("Starting docgate server")

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", "http://"+srv.Addr()).Msg("Server listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	logging.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Server shutdown error")
	}

	logging.Info().Msg("Server stopped")
	return nil
}
