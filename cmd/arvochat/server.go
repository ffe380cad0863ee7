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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/arvocap/arvochat/internal/api"
	"github.com/arvocap/arvochat/internal/bridge"
	"github.com/arvocap/arvochat/internal/composer"
	"github.com/arvocap/arvochat/internal/config"
	"github.com/arvocap/arvochat/internal/contact"
	"github.com/arvocap/arvochat/internal/credentials"
	"github.com/arvocap/arvochat/internal/faq"
	"github.com/arvocap/arvochat/internal/janitor"
	"github.com/arvocap/arvochat/internal/metrics"
	"github.com/arvocap/arvochat/internal/proxy"
	"github.com/arvocap/arvochat/internal/resolver"
	"github.com/arvocap/arvochat/internal/session"
	"github.com/arvocap/arvochat/internal/storage"
)

const janitorInterval = time.Minute

var serveMCP bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the arvochat server (foreground)",
	Long: `Start the chat widget API and the admin API on 127.0.0.1.

With --mcp the assistant is also served over MCP on stdin/stdout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(serveMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running arvochat server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show arvochat system status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	startCmd.Flags().BoolVar(&serveMCP, "mcp", false, "also serve MCP over stdio")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "arvochat.pid")
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

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadCredentials seeds the runtime credential store from config. The admin
// console may replace any of it later.
func loadCredentials(cfg config.Config) (*credentials.Store, error) {
	creds := credentials.New()
	creds.SetProviderKey(credentials.ProviderOpenAI, cfg.Completion.APIKey)

	if cfg.Sheets.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.Sheets.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading sheets credentials: %w", err)
		}
		g, err := credentials.ParseServiceAccount(data)
		if err != nil {
			return nil, err
		}
		creds.SetGoogle(g)
	}
	creds.SetGoogle(credentials.Google{
		SpreadsheetID: cfg.Sheets.SpreadsheetID,
		ClientEmail:   cfg.Sheets.ClientEmail,
		PrivateKey:    cfg.Sheets.PrivateKey,
	})
	return creds, nil
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "arvochat version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)})))

	if err := cfg.RequireAdminToken(); err != nil {
		return err
	}

	// Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("arvochat is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("arvochat is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
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

	creds, err := loadCredentials(cfg)
	if err != nil {
		return err
	}
	if !creds.Google().Complete() {
		slog.Warn("google sheets not configured, contact requests go to the local backup only")
	}

	m := metrics.New()

	knowledge := bridge.New(cfg.Backend.URL,
		bridge.WithChatTimeout(cfg.Backend.ChatTimeout),
		bridge.WithSearchTimeout(cfg.Backend.SearchTimeout),
	)
	completer := proxy.NewClient(cfg.Completion.BaseURL, creds).WithTimeout(cfg.Completion.Timeout)

	faqs := faq.Default()
	matcher := faq.NewMatcher(faqs)
	res := resolver.New(matcher, knowledge, completer, composer.New(0), resolver.Options{
		Model:            cfg.Completion.Model,
		Temperature:      cfg.Completion.Temperature,
		MaxTokens:        cfg.Completion.MaxTokens,
		SearchMaxResults: cfg.Backend.SearchMaxResults,
		ScoreThreshold:   cfg.Backend.SearchScoreThreshold,
		CacheTTL:         cfg.Cache.TTL,
		Metrics:          m,
	})

	sessions := session.NewManager(cfg.Session.TTL)

	sheetsSink := contact.NewSheetsSink(creds, cfg.Sheets.SheetName)
	backupSink := contact.NewBackupSink(cfg.Backup.Path)
	slog.Info("contact backup workbook", "path", backupSink.Path())
	contacts := contact.NewService([]contact.Sink{sheetsSink, backupSink},
		contact.WithMetrics(m),
		contact.WithReader(contact.FallbackReader(sheetsSink, backupSink)),
	)
	// Let queued deliveries land before storage and the process go away.
	defer contacts.Wait()

	m.Gauge("active_sessions", "Conversations currently held in memory.", sessions.Len)
	m.Gauge("cache_entries", "Entries in the response cache.", res.Cache().Len)

	tasks := []janitor.Task{
		janitor.Sweep("sessions", sessions.Sweep),
		janitor.Sweep("response_cache", res.Cache().Sweep),
	}
	if cfg.Storage.Retention > 0 {
		tasks = append(tasks, janitor.Task{
			Name: "interactions",
			Run: func(ctx context.Context) (int, error) {
				n, err := store.PurgeBefore(ctx, time.Now().Add(-cfg.Storage.Retention))
				return int(n), err
			},
		})
	}
	go janitor.NewWorker(janitorInterval, tasks...).Run(ctx)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.Recoverer)
	r.Get("/health", api.HandleHealth)
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Mount("/api", api.NewChatHandler(api.ChatDeps{
		FAQ:          faqs,
		Resolver:     res,
		Sessions:     sessions,
		Contacts:     contacts,
		Knowledge:    knowledge,
		Interactions: store,
	}))
	r.Mount("/admin", api.NewAdminHandler(api.AdminDeps{
		Bridge:         knowledge,
		Credentials:    creds,
		Contacts:       contacts,
		Interactions:   store,
		SpreadsheetURL: sheetsSink.SpreadsheetURL,
		Token:          cfg.Server.AdminToken,
	}))

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			FAQ:          faqs,
			Matcher:      matcher,
			Resolver:     res,
			Contacts:     contacts,
			Interactions: store,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "arvochat listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
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
		printError("arvochat is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop arvochat (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to arvochat (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
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

	kb := bridge.New(cfg.Backend.URL, bridge.WithHTTPClient(client))
	if h := kb.Health(context.Background()); h.Success {
		printStatus("Knowledge", "connected at %s", cfg.Backend.URL)
	} else {
		printStatus("Knowledge", "unavailable at %s (%s)", cfg.Backend.URL, h.Error)
	}

	printStatus("Model", "%s", cfg.Completion.Model)
	if cfg.Completion.APIKey == "" {
		printStatus("Completion", "no API key (generic answers disabled)")
	}
	if cfg.Sheets.SpreadsheetID != "" {
		printStatus("Spreadsheet", "%s", cfg.Sheets.SpreadsheetID)
	} else {
		printStatus("Spreadsheet", "not configured")
	}
	printStatus("Backup", "%s", cfg.Backup.Path)

	if running && cfg.Server.AdminToken != "" {
		var page struct {
			Interactions []struct{} `json:"interactions"`
		}
		resp, err := apiGet(client, serverURL+"/admin/interactions?limit=100", cfg.Server.AdminToken)
		if err == nil && decodeJSON(resp, &page) == nil {
			printStatus("Interactions", "%s", countLabel(len(page.Interactions), 100))
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}

func apiGet(client *http.Client, url, token string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return client.Do(req)
}
