package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/rfpdesk/internal/analytics"
	"github.com/kalambet/rfpdesk/internal/api"
	"github.com/kalambet/rfpdesk/internal/config"
	"github.com/kalambet/rfpdesk/internal/fixture"
	"github.com/kalambet/rfpdesk/internal/monitor"
	"github.com/kalambet/rfpdesk/internal/notify"
	"github.com/kalambet/rfpdesk/internal/review"
	"github.com/kalambet/rfpdesk/internal/storage"
	"github.com/kalambet/rfpdesk/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the rfpdesk server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts serverOptions
		opts.mcpStdio, _ = cmd.Flags().GetBool("mcp-stdio")
		opts.restore, _ = cmd.Flags().GetBool("restore")
		return runServer(cmd.Context(), opts)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running rfpdesk server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show rfpdesk server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	startCmd.Flags().Bool("mcp-stdio", true, "serve MCP over stdin/stdout alongside the HTTP API")
	startCmd.Flags().Bool("restore", false, "replay recorded review decisions onto the validation queue")
}

type serverOptions struct {
	mcpStdio bool
	// restore replays the decision trail; by default every start begins
	// from the seed.
	restore bool
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "rfpdesk.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

// loadRecords reads the seed at path, or the built-in seed when path is empty.
func loadRecords(path string, now time.Time) (*fixture.Store, error) {
	if path == "" {
		ds, err := fixture.Default(now)
		if err != nil {
			return nil, fmt.Errorf("loading built-in seed: %w", err)
		}
		return fixture.NewStore(ds), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed: %w", err)
	}
	defer f.Close()
	ds, err := fixture.Load(f, now)
	if err != nil {
		return nil, fmt.Errorf("loading seed %s: %w", path, err)
	}
	return fixture.NewStore(ds), nil
}

func slaFromConfig(c config.SLAConfig) analytics.SLAThresholds {
	return analytics.SLAThresholds{
		CriticalDays: c.CriticalDays,
		HighDays:     c.HighDays,
		MediumDays:   c.MediumDays,
	}
}

func runServer(parent context.Context, opts serverOptions) error {
	fmt.Fprintf(os.Stderr, "rfpdesk version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)
	if cfg.Server.APIToken == "" {
		slog.Warn("RFPDESK_API_TOKEN is not set; the API accepts unauthenticated requests")
	}

	// Refuse to start twice.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("rfpdesk is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("rfpdesk is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	records, err := loadRecords(cfg.Fixtures.Path, time.Now())
	if err != nil {
		return err
	}

	metrics := telemetry.New(records, time.Now)
	notifier := notify.New(store, logger)
	svc := review.NewService(review.Deps{
		Items:     records,
		Decisions: store,
		Notifier:  notifier,
		Observer:  metrics,
		Logger:    logger,
	})
	if opts.restore {
		if _, err := svc.Restore(ctx); err != nil {
			return fmt.Errorf("restoring decisions: %w", err)
		}
	}

	mon := monitor.New(records, monitor.Options{
		Schedule:     cfg.Alerts.Schedule,
		DeadlineDays: cfg.Alerts.DeadlineDays,
		Observer:     metrics,
		Logger:       logger,
	})
	if err := mon.Start(ctx); err != nil {
		return fmt.Errorf("starting alert monitor: %w", err)
	}
	defer mon.Stop()

	sla := slaFromConfig(cfg.SLA)
	handler := api.NewAppHandler(api.AppDeps{
		Records:     records,
		Store:       store,
		Review:      svc,
		Notifier:    notifier,
		Metrics:     metrics,
		Token:       cfg.Server.APIToken,
		SLA:         sla,
		UrgentLimit: cfg.Dashboard.UrgentLimit,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "rfpdesk listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if opts.mcpStdio {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Records:     records,
			Review:      svc,
			SLA:         sla,
			UrgentLimit: cfg.Dashboard.UrgentLimit,
			Version:     version,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
		slog.Info("MCP server started (stdio transport)")
	}

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("rfpdesk is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop rfpdesk (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to rfpdesk (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &apiClient{
		baseURL:    serverURL,
		token:      cfg.Server.APIToken,
		httpClient: &http.Client{Timeout: 2 * time.Second},
	}

	running := false
	resp, err := client.get(ctx, "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if pid, err := readPIDFile(pidFilePath(cfg.Storage.DataDir)); err == nil {
		printStatus("PID", "%d", pid)
	}

	if running {
		var q api.QueueView
		if err := client.getJSON(ctx, "/validation", &q); err == nil {
			printStatus("Validation", "%d pending, %d approved, %d rejected", q.Summary.Pending, q.Summary.Approved, q.Summary.Rejected)
		}
		var alerts []struct {
			ID string `json:"id"`
		}
		if err := client.getJSON(ctx, "/alerts", &alerts); err == nil {
			printStatus("Alerts", "%d active", len(alerts))
		}
	}

	printStatus("Alert schedule", "%s", cfg.Alerts.Schedule)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
