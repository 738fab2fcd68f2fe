// Command server runs the prompt tester: the invocation gateway, the
// browser shell, and the metrics endpoint in one process.
//
// Configuration is layered: built-in defaults, then an optional YAML file
// (-config flag, PROMPTTESTER_CONFIG, ./config.yaml, or
// /etc/prompt-tester/config.yaml), then PROMPTTESTER_* environment
// overrides. See pkg/config for the full reference.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tonyxmella66/prompt-tester/pkg/auth"
	jwtauth "github.com/tonyxmella66/prompt-tester/pkg/auth/jwt"
	"github.com/tonyxmella66/prompt-tester/pkg/auth/noop"
	remoteauth "github.com/tonyxmella66/prompt-tester/pkg/auth/remote"
	"github.com/tonyxmella66/prompt-tester/pkg/config"
	"github.com/tonyxmella66/prompt-tester/pkg/debug"
	"github.com/tonyxmella66/prompt-tester/pkg/gateway"
	"github.com/tonyxmella66/prompt-tester/pkg/session"
	"github.com/tonyxmella66/prompt-tester/pkg/storage"
	"github.com/tonyxmella66/prompt-tester/pkg/storage/memory"
	"github.com/tonyxmella66/prompt-tester/pkg/storage/postgres"
	"github.com/tonyxmella66/prompt-tester/pkg/storage/sqlite"
	"github.com/tonyxmella66/prompt-tester/pkg/upstream"
	"github.com/tonyxmella66/prompt-tester/pkg/web"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	debug.Init(cfg.Logging.Debug, cfg.Logging.Level, cfg.Logging.Format)

	// Inference backend client. The probe fails fast when the backend
	// does not serve the Responses API.
	up, err := upstream.New(upstream.Config{
		BaseURL: cfg.Upstream.BaseURL,
		APIKey:  cfg.Upstream.APIKey,
		Timeout: cfg.Upstream.Timeout,
		Probe:   cfg.Upstream.ProbeOnStart,
	})
	if err != nil {
		return fmt.Errorf("creating upstream client: %w", err)
	}

	store, err := buildStore(context.Background(), cfg.Storage)
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	if store != nil {
		defer store.Close()
	}

	authMiddleware, err := buildAuth(*cfg)
	if err != nil {
		return fmt.Errorf("creating authenticator: %w", err)
	}

	gw := gateway.New(gateway.Config{
		Upstream:   up,
		Store:      store,
		Auth:       authMiddleware,
		CORSOrigin: cfg.Server.CORSOrigin,
	})
	gwHandler := gw.Handler()

	mux := http.NewServeMux()
	mux.Handle("/invoke_model", gwHandler)
	mux.Handle("/health", gwHandler)
	mux.Handle("/models", gwHandler)
	mux.Handle("/history", gwHandler)

	if cfg.Observability.Metrics.Enabled {
		mux.Handle(cfg.Observability.Metrics.Path, promhttp.Handler())
	}

	if err := mountWeb(mux, *cfg); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"port", cfg.Server.Port,
			"upstream", cfg.Upstream.BaseURL,
			"auth", cfg.Auth.Type,
			"storage", cfg.Storage.Type,
			"web", cfg.Web.Enabled)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// buildStore creates the history store named by the configuration.
// A "none" type returns nil, which disables /history.
func buildStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case "", "none":
		slog.Info("history storage disabled")
		return nil, nil
	case "memory":
		slog.Info("history storage enabled", "type", "memory", "max_size", cfg.MaxSize)
		return memory.New(cfg.MaxSize), nil
	case "sqlite":
		slog.Info("history storage enabled", "type", "sqlite", "path", cfg.SQLite.Path)
		return sqlite.New(ctx, cfg.SQLite.Path)
	case "postgres":
		slog.Info("history storage enabled", "type", "postgres")
		return postgres.New(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// buildAuth assembles the authentication middleware: the voter chain for
// the configured auth type plus the in-process rate limiter.
func buildAuth(cfg config.Config) (gateway.Middleware, error) {
	var chain *auth.AuthChain
	switch cfg.Auth.Type {
	case "", "none":
		chain = &auth.AuthChain{
			Authenticators:  []auth.Authenticator{&noop.Authenticator{}},
			DefaultDecision: auth.Yes,
		}
	case "jwt":
		chain = &auth.AuthChain{
			Authenticators: []auth.Authenticator{jwtauth.New(jwtauth.Config{
				JWKSURL:    cfg.Auth.JWT.JWKSURL,
				Issuer:     cfg.Auth.JWT.Issuer,
				Audience:   cfg.Auth.JWT.Audience,
				UserClaim:  cfg.Auth.JWT.UserClaim,
				EmailClaim: cfg.Auth.JWT.EmailClaim,
			})},
			DefaultDecision: auth.No,
		}
	case "remote":
		authn, err := remoteauth.New(remoteauth.Config{
			BaseURL: cfg.Auth.Provider.BaseURL,
			AnonKey: cfg.Auth.Provider.AnonKey,
		})
		if err != nil {
			return nil, err
		}
		chain = &auth.AuthChain{
			Authenticators:  []auth.Authenticator{authn},
			DefaultDecision: auth.No,
		}
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Auth.Type)
	}

	var limiter auth.RateLimiter
	if cfg.Limits.RequestsPerWindow > 0 {
		tiers := make(map[string]auth.TierConfig, len(cfg.Limits.Tiers))
		for name, budget := range cfg.Limits.Tiers {
			tiers[name] = auth.TierConfig{RequestsPerWindow: budget}
		}
		limiter = auth.NewInProcessLimiter(tiers, cfg.Limits.RequestsPerWindow, cfg.Limits.Window)
	}

	return auth.Middleware(chain, limiter, auth.DefaultBypassEndpoints), nil
}

// mountWeb attaches the browser shell at the root. The shell needs an
// auth provider for sign-in; without one it is skipped even when enabled.
func mountWeb(mux *http.ServeMux, cfg config.Config) error {
	if !cfg.Web.Enabled {
		return nil
	}
	if cfg.Auth.Provider.BaseURL == "" {
		slog.Warn("web shell disabled: auth.provider.base_url is not set")
		return nil
	}

	provider, err := session.NewClient(session.Config{
		BaseURL: cfg.Auth.Provider.BaseURL,
		AnonKey: cfg.Auth.Provider.AnonKey,
	})
	if err != nil {
		return fmt.Errorf("creating session client: %w", err)
	}

	shell, err := web.NewServer(web.Config{
		GatewayURL:    fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
		Provider:      provider,
		CookieName:    cfg.Web.CookieName,
		CookieSecure:  cfg.Web.CookieSecure,
		InvokeTimeout: cfg.Upstream.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating web shell: %w", err)
	}

	mux.Handle("/", shell.Handler())
	return nil
}
