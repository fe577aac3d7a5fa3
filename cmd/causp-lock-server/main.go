// Command causp-lock-server serves the lock payload HTTP API.
//
// It issues signed payloads from a keyring file, stores them in SQLite and
// records every issued or verified payload in an event log.
//
// Usage:
//
//	causp-lock-server [flags]
//
// Flags:
//
//	-config string     Configuration file (.yaml, .yml or .json)
//	-init-keys         Generate a keyring if the keyring file does not exist
//	-log-level string  Override the configured log level
//
// Examples:
//
//	# First start: create keys and serve
//	SECRET_KEY=change-me causp-lock-server -init-keys
//
//	# Serve with a config file
//	causp-lock-server -config /etc/causp/server.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/henriqueedu2001/causp-lock-server/pkg/api"
	"github.com/henriqueedu2001/causp-lock-server/pkg/issuer"
	"github.com/henriqueedu2001/causp-lock-server/pkg/keys"
	"github.com/henriqueedu2001/causp-lock-server/pkg/log"
	"github.com/henriqueedu2001/causp-lock-server/pkg/persistence"
	"github.com/henriqueedu2001/causp-lock-server/pkg/wire"
)

var version = "dev"

var (
	configFile = flag.String("config", "", "Configuration file (.yaml, .yml or .json)")
	initKeys   = flag.Bool("init-keys", false, "Generate a keyring if the keyring file does not exist")
	logLevel   = flag.String("log-level", "", "Override the configured log level (debug, info, warn, error)")
)

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:    true,
		DisableColors:    true,
		QuoteEmptyFields: true,
	})
}

func main() {
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logrus.StandardLogger()); err != nil {
		logrus.Fatal(err)
	}
	logrus.Info("Goodbye!")
}

// run serves until ctx is cancelled.
func run(ctx context.Context, cfg *ServerConfig, logger *logrus.Logger) error {
	kr, err := loadKeyring(cfg.KeyringFile, *initKeys, logger)
	if err != nil {
		return err
	}

	store, err := persistence.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer store.Close()

	eventLogger := log.Logger(log.NewLogrusAdapter(logger))
	if cfg.EventLog != "" {
		fileLogger, err := log.NewFileLogger(cfg.EventLog)
		if err != nil {
			return err
		}
		defer fileLogger.Close()
		eventLogger = log.NewMultiLogger(eventLogger, fileLogger)
		logger.WithField("path", cfg.EventLog).Info("Event log enabled")
	}

	ttls := make(map[wire.MessageType]time.Duration)
	if d, ok := ttl(cfg.AccessTTLSeconds); ok {
		ttls[wire.MessageTypeAccess] = d
	}
	if d, ok := ttl(cfg.SyncTTLSeconds); ok {
		ttls[wire.MessageTypeSync] = d
	}

	iss, err := issuer.New(issuer.Config{
		Keys:   kr,
		Store:  store,
		Logger: eventLogger,
		TTL:    ttls,
	})
	if err != nil {
		return err
	}

	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit < 0 {
		limit = -1
	}
	srv, err := api.New(api.Config{
		Store:          store,
		Issuer:         iss,
		Secret:         []byte(cfg.APISecret),
		Token:          cfg.APIToken,
		TrustedProxies: cfg.TrustedProxies,
		Logger:         logger,
		RateLimit:      limit,
		Burst:          cfg.Burst,
		Version:        version,
	})
	if err != nil {
		return err
	}

	if cfg.PruneIntervalSeconds > 0 {
		go pruneLoop(ctx, store, time.Duration(cfg.PruneIntervalSeconds)*time.Second, logger)
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":    cfg.ListenAddr,
			"db":      cfg.DBPath,
			"roles":   kr.Roles(),
			"version": version,
		}).Info("Serving lock payload API")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// loadKeyring reads the keyring file, generating and saving a full keyring
// when the file is missing and generate is set.
func loadKeyring(path string, generate bool, logger logrus.FieldLogger) (*keys.Keyring, error) {
	ks := persistence.NewKeyringStore(path)
	kr, err := ks.Load()
	if err != nil {
		return nil, err
	}
	if kr != nil {
		return kr, nil
	}
	if !generate {
		return nil, fmt.Errorf("keyring %s not found (start with -init-keys to create one)", path)
	}

	kr = keys.NewKeyring()
	if err := kr.Generate(); err != nil {
		return nil, err
	}
	if err := ks.Save(kr); err != nil {
		return nil, err
	}
	logger.WithField("path", path).Warn("Generated new keyring")
	return kr, nil
}

// pruneLoop deletes expired records every interval until ctx is done.
func pruneLoop(ctx context.Context, store *persistence.Store, interval time.Duration, logger logrus.FieldLogger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.DeleteExpired(ctx, now)
			if err != nil {
				logger.WithError(err).Warn("Failed to prune expired records")
				continue
			}
			if n > 0 {
				logger.WithField("count", n).Debug("Pruned expired records")
			}
		}
	}
}
