package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sabarim/starmf/internal/audit"
	"github.com/sabarim/starmf/internal/auth"
	"github.com/sabarim/starmf/internal/client"
	"github.com/sabarim/starmf/internal/config"
	"github.com/sabarim/starmf/internal/logging"
	"github.com/sabarim/starmf/internal/schemes"
	"github.com/sabarim/starmf/internal/transport"
)

var (
	configFile  string
	passKey     string
	metricsAddr string
	verbose     bool
)

var versionString = "0.1.0"

func main() {
	// Define the root command
	rootCmd := &cobra.Command{
		Use:          "starmf",
		Short:        "Place and track mutual fund orders on BSE StAR MF",
		Long:         `A command line client for the BSE StAR MF order-entry service: login, lumpsum, SIP, XSIP, switch and cancel orders, order status queries, scheme master sync and audit export.`,
		Version:      versionString,
		SilenceUsage: true,
	}

	// Define flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&passKey, "pass-key", "", "Login pass key (or "+config.EnvPrefix+"_PASS_KEY)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the command runs")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	rootCmd.AddCommand(
		newLoginCmd(),
		newLumpsumCmd(),
		newSIPCmd(),
		newXSIPCmd(),
		newSwitchCmd(),
		newCancelCmd(),
		newStatusCmd(),
		newSchemesCmd(),
		newAuditCmd(),
	)

	// Execute the command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is everything a command needs, built once per invocation.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	transport *transport.Client
	auth      *auth.Authenticator
	client    *client.Client
	schemes   *schemes.Manager
	journal   *audit.Journal
	metrics   *http.Server
}

func setup() (*app, error) {
	// 1. Load configuration from file and environment
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	// 2. Build the logger
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	// 3. Register metrics and optionally serve them
	registry := prometheus.NewRegistry()
	metrics := transport.NewMetrics(registry)
	if metricsAddr != "" {
		a.metrics = &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := a.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	// 4. Open the audit journal
	a.journal, err = audit.OpenJournal(cfg.Audit.Dir, logger)
	if err != nil {
		return nil, err
	}
	recorder := audit.NewRecorder(nil, a.journal, logger)

	// 5. Initialize transport, recording every attempt in the journal
	a.transport, err = transport.New(cfg.TransportOptions(),
		transport.WithLogger(logger),
		transport.WithMetrics(metrics),
		transport.WithObserver(recorder),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	doer := a.transport

	// 6. Initialize authentication
	creds := cfg.Credentials()
	login := auth.NewAuthClient(creds, cfg.Endpoints.OrderEntry, doer, logger)
	a.auth, err = auth.NewAuthenticator(creds, login, append(cfg.SessionOptions(), auth.WithLogger(logger))...)
	if err != nil {
		a.Close()
		return nil, err
	}

	// 7. Load the scheme master when one is present
	a.schemes = schemes.NewManager(cfg.Schemes.Path, logger)
	opts := []client.Option{client.WithLogger(logger), client.WithLimits(cfg.OrderLimits())}
	if _, err := os.Stat(cfg.Schemes.Path); err == nil {
		if err := a.schemes.Load(); err != nil {
			logger.Warn("scheme master not loaded", zap.Error(err))
		} else {
			opts = append(opts, client.WithChecker(a.schemes))
		}
	}

	// 8. Build the order client
	a.client = client.New(creds.Account(), cfg.Endpoints.OrderEntry, a.auth, doer, opts...)
	return a, nil
}

// Close flushes the journal, exports it to parquet when configured and
// stops the metrics server.
func (a *app) Close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Error("failed to close audit journal", zap.Error(err))
		}
		if a.cfg.Audit.Parquet {
			files, err := audit.ExportParquet(a.journal.Path(), filepath.Join(a.cfg.Audit.Dir, "parquet"))
			if err != nil {
				a.logger.Error("failed to export audit journal", zap.Error(err))
			} else {
				a.logger.Info("exported audit journal", zap.Strings("files", files))
			}
		}
	}
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.metrics.Shutdown(ctx)
	}
	_ = a.logger.Sync()
}

// login authenticates with the pass key from the flag or environment.
func (a *app) login(ctx context.Context) error {
	key := passKey
	if key == "" {
		key = os.Getenv(config.EnvPrefix + "_PASS_KEY")
	}
	return a.client.Authenticate(ctx, key)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigchan:
			logger.Info("received signal, cancelling", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigchan)
	}()
	return ctx, cancel
}

// run builds the app, logs in when needed and runs fn with a cancellable
// context.
func run(needsLogin bool, fn func(ctx context.Context, a *app) error) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext(a.logger)
	defer cancel()

	if needsLogin {
		if err := a.login(ctx); err != nil {
			return err
		}
	}
	return fn(ctx, a)
}
