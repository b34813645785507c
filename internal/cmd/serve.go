package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/veil-sh/veil/internal/config"
	"github.com/veil-sh/veil/internal/redact"
	"github.com/veil-sh/veil/internal/server"
	"github.com/veil-sh/veil/internal/vault"
)

var (
	servePort         int
	serveGlobalRPM    int
	servePerCallerRPM int
	serveNoVault      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Veil HTTP redaction service",
	Long: `Serves POST /v1/redact and /v1/restore plus mapping-vault endpoints.
API keys come from VEIL_API_KEYS (comma-separated; each entry "key" or
"key:caller_id"). With no keys configured, authentication is disabled;
use that for local development only.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "HTTP server port")
	serveCmd.Flags().IntVar(&serveGlobalRPM, "global-rpm", 600, "global requests/minute (0 disables rate limiting)")
	serveCmd.Flags().IntVar(&servePerCallerRPM, "caller-rpm", 120, "per-caller requests/minute")
	serveCmd.Flags().BoolVar(&serveNoVault, "no-vault", false, "disable mapping persistence")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	defaultRedactor, err := buildRedactor(cfg, nil, nil, 0, false)
	if err != nil {
		return fmt.Errorf("building redactor: %w", err)
	}
	factory := func(entities, customWords []string, fuzzy int) (*redact.Redactor, error) {
		return buildRedactor(cfg, entities, customWords, fuzzy, false)
	}

	apiKeys := server.ParseAPIKeys(os.Getenv("VEIL_API_KEYS"))
	if len(apiKeys) == 0 {
		log.Warn().Msg("VEIL_API_KEYS not set; serving without authentication")
	}

	var opts []server.Option
	if !serveNoVault {
		if err := cfg.EnsureDataDir(); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		cfg.WarnIfDerivedKey()
		store, err := vault.New(cfg.VaultPath(), cfg.VaultKey)
		if err != nil {
			return fmt.Errorf("opening mapping vault: %w", err)
		}
		defer store.Close()
		opts = append(opts, server.WithVault(store))
	}
	if serveGlobalRPM > 0 {
		opts = append(opts, server.WithRateLimiter(server.NewRateLimiter(serveGlobalRPM, servePerCallerRPM)))
	}

	srv := server.NewServer(defaultRedactor, factory, apiKeys, opts...)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", servePort),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", servePort).Bool("detector", cfg.DetectorEnabled).Msg("Veil server listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
