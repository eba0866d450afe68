// Package main implements the entry point for the islandhost server.
// Islandhost serves documents carrying island markers and runs the
// coordination layer that mounts, routes, and updates them.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/surgify/islandkit/bridge"
	"github.com/surgify/islandkit/bus"
	"github.com/surgify/islandkit/config"
	"github.com/surgify/islandkit/document"
	"github.com/surgify/islandkit/health"
	"github.com/surgify/islandkit/island"
	"github.com/surgify/islandkit/metric"
	"github.com/surgify/islandkit/pageupdate"
	"github.com/surgify/islandkit/relay"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "islandhost"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting islandhost",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath,
		"environment", cfg.Environment)

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	host, err := assembleHost(cliCfg, cfg, logger)
	if err != nil {
		return err
	}
	defer host.close()

	return runWithSignalHandling(host, cfg, cliCfg.ShutdownTimeout)
}

// initializeCLI parses flags and handles the informational exits
func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, true, nil
	}

	return cliCfg, false, nil
}

// initializeConfiguration loads the config file, or defaults when none given
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	if cliCfg.ConfigPath == "" {
		return config.Default(), nil
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// host holds the assembled coordination layer and its servers.
type host struct {
	logger   *slog.Logger
	metrics  *metric.Registry
	monitor  *health.Monitor
	eventBus *bus.Bus
	doc      *document.Document
	bridge   *bridge.Bridge
	live     *pageupdate.LiveUpdater
	relay    *relay.Relay

	httpServer    *http.Server
	metricsServer *metric.Server
}

// assembleHost wires every part of the coordination layer together.
func assembleHost(cliCfg *CLIConfig, cfg *config.Config, logger *slog.Logger) (*host, error) {
	metricsRegistry := metric.NewRegistry()
	monitor := health.NewMonitor()
	eventBus := bus.NewBus(logger, metricsRegistry)

	page, err := loadPage(cliCfg.PagePath)
	if err != nil {
		return nil, fmt.Errorf("load page: %w", err)
	}
	doc, err := document.ParseString(page)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	mounts := island.NewRegistry(logger)
	loaders := island.NewLoaderRegistry()
	if err := registerIslandTypes(loaders, eventBus, logger); err != nil {
		return nil, fmt.Errorf("register island types: %w", err)
	}
	slog.Info("Island types registered", "count", len(loaders.Types()), "types", loaders.Types())

	httpUpdater := pageupdate.NewHTTPUpdater(cfg.Server.BackendURL, doc, nil, logger, metricsRegistry)
	live := pageupdate.NewLiveUpdater(httpUpdater, logger)

	opTimeout := time.Duration(cfg.Server.OperationTimeout)
	if opTimeout <= 0 {
		opTimeout = 15 * time.Second
	}
	islandBridge, err := bridge.New(mounts, loaders, eventBus, doc, live, logger, metricsRegistry,
		bridge.WithOperationTimeout(opTimeout))
	if err != nil {
		return nil, fmt.Errorf("create bridge: %w", err)
	}

	h := &host{
		logger:   logger,
		metrics:  metricsRegistry,
		monitor:  monitor,
		eventBus: eventBus,
		doc:      doc,
		bridge:   islandBridge,
		live:     live,
	}

	if cfg.Relay.Enabled {
		h.relay, err = setupRelay(cfg, eventBus, logger, metricsRegistry, monitor)
		if err != nil {
			return nil, err
		}
	}

	monitor.UpdateHealthy("bus", "delivering")
	monitor.UpdateHealthy("bridge", "ready")

	h.httpServer = buildHTTPServer(cfg.Server.ListenAddr, h)
	h.metricsServer = buildMetricsServer(cfg.Server.MetricsAddr, metricsRegistry)

	return h, nil
}

// setupRelay connects the group-traffic relay. A broker that is down at
// startup degrades health instead of failing the host; the relay keeps
// reconnecting in the background once started, so only configuration
// errors are fatal here.
func setupRelay(
	cfg *config.Config,
	eventBus *bus.Bus,
	logger *slog.Logger,
	metricsRegistry *metric.Registry,
	monitor *health.Monitor,
) (*relay.Relay, error) {
	r, err := relay.New(relay.Config{
		URL:           cfg.Relay.URL,
		SubjectPrefix: cfg.Relay.SubjectPrefix,
		Name:          appName + "-" + cfg.Environment,
	}, eventBus, logger, metricsRegistry)
	if err != nil {
		return nil, fmt.Errorf("create relay: %w", err)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.Start(startCtx); err != nil {
		slog.Warn("Relay unavailable, group traffic stays local", "error", err)
		monitor.UpdateDegraded("relay", err.Error())
		return r, nil
	}

	monitor.UpdateHealthy("relay", "connected")
	return r, nil
}

// buildHTTPServer assembles the page-serving mux.
func buildHTTPServer(addr string, h *host) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := h.doc.Render(w); err != nil {
			h.logger.Error("Page render failed", "error", err)
			http.Error(w, "render failed", http.StatusInternalServerError)
		}
	})
	mux.Handle("/live", h.live)
	mux.Handle("/healthz", h.monitor.Handler(appName))

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// buildMetricsServer creates the metrics server, or nil when disabled.
func buildMetricsServer(addr string, registry *metric.Registry) *metric.Server {
	if addr == "" {
		return nil
	}

	port := 9090
	if _, portStr, err := net.SplitHostPort(addr); err == nil {
		if parsed, perr := strconv.Atoi(portStr); perr == nil {
			port = parsed
		}
	}

	return metric.NewServer(port, "/metrics", registry)
}

// runWithSignalHandling performs the initial scan, starts the servers, and
// blocks until a shutdown signal arrives.
func runWithSignalHandling(h *host, cfg *config.Config, shutdownTimeout time.Duration) error {
	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	mounted, err := h.bridge.Scan(signalCtx)
	if err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}
	slog.Info("Initial scan complete", "mounted", mounted)
	h.monitor.UpdateHealthy("bridge", fmt.Sprintf("%d islands mounted", mounted))

	errCh := make(chan error, 2)
	go func() {
		slog.Info("Serving pages", "addr", cfg.Server.ListenAddr)
		if serveErr := h.httpServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", serveErr)
		}
	}()
	if h.metricsServer != nil {
		go func() {
			slog.Info("Serving metrics", "addr", cfg.Server.MetricsAddr)
			if serveErr := h.metricsServer.Start(); serveErr != nil {
				errCh <- fmt.Errorf("metrics server: %w", serveErr)
			}
		}()
	}

	go refreshHealth(signalCtx, h)

	slog.Info("Islandhost started")

	select {
	case err := <-errCh:
		return err
	case <-signalCtx.Done():
		slog.Info("Received shutdown signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := h.httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}

	slog.Info("Islandhost shutdown complete")
	return nil
}

// refreshHealth keeps the monitor current with bridge and relay state.
func refreshHealth(ctx context.Context, h *host) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if degraded := h.bridge.DegradedIslands(); len(degraded) > 0 {
				h.monitor.UpdateDegraded("bridge",
					fmt.Sprintf("%d islands showing fallback content", len(degraded)))
			} else {
				h.monitor.UpdateHealthy("bridge",
					fmt.Sprintf("%d islands mounted", h.bridge.MountedCount()))
			}

			if h.relay != nil {
				switch {
				case h.relay.IsHealthy():
					h.monitor.UpdateHealthy("relay", "connected")
				case h.relay.Status() == relay.StatusReconnecting:
					h.monitor.UpdateDegraded("relay", "reconnecting")
				default:
					h.monitor.UpdateUnhealthy("relay", h.relay.Status().String())
				}
			}
		}
	}
}

// close tears the coordination layer down in reverse dependency order.
func (h *host) close() {
	if h.relay != nil {
		if err := h.relay.Close(); err != nil {
			h.logger.Warn("Relay close failed", "error", err)
		}
	}
	h.bridge.Close()
	if err := h.live.Close(); err != nil {
		h.logger.Warn("Live updater close failed", "error", err)
	}
	h.eventBus.Close()
	if h.metricsServer != nil {
		if err := h.metricsServer.Stop(); err != nil {
			h.logger.Warn("Metrics server stop failed", "error", err)
		}
	}
}

// loadPage reads the page template, falling back to the built-in demo page.
func loadPage(path string) (string, error) {
	if path == "" {
		return demoPage, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator's flag
	if err != nil {
		return "", err
	}
	return string(data), nil
}
