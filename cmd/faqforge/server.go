package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mkoval/faqforge/internal/api"
	"github.com/mkoval/faqforge/internal/catalog"
	"github.com/mkoval/faqforge/internal/config"
	"github.com/mkoval/faqforge/internal/dataset"
	"github.com/mkoval/faqforge/internal/engine"
	"github.com/mkoval/faqforge/internal/export"
	"github.com/mkoval/faqforge/internal/pipeline"
	"github.com/mkoval/faqforge/internal/registry"
	"github.com/mkoval/faqforge/internal/source"
	"github.com/mkoval/faqforge/internal/watch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the faqforge server (foreground)",
	Long: `Start the faqforge server: web UI and JSON API on one port.

Examples:
  faqforge serve
  faqforge serve --port 8080 --token s3cret
  faqforge serve --watch ./faqs.txt --chatbot "Corner Bakery" --industry restaurant`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running faqforge server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show faqforge system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides config)")
	serveCmd.Flags().String("token", "", "API bearer token (overrides config)")
	serveCmd.Flags().String("watch", "", "FAQ file to watch; changes re-train the watched chatbot")
	serveCmd.Flags().String("chatbot", "", "name for the watched chatbot (default: watch file name)")
	serveCmd.Flags().String("industry", "", "industry for the watched chatbot")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "faqforge.pid")
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

func setupLogging(level string) {
	logLevel := slog.LevelInfo
	switch {
	case strings.EqualFold(level, "debug"):
		logLevel = slog.LevelDebug
	case strings.EqualFold(level, "warn"):
		logLevel = slog.LevelWarn
	case strings.EqualFold(level, "error"):
		logLevel = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func runServer(cmd *cobra.Command) error {
	fmt.Fprintf(os.Stderr, "faqforge version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	if token, _ := cmd.Flags().GetString("token"); token != "" {
		cfg.Server.APIToken = token
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	setupLogging(cfg.Log.Level)

	modelsDir := filepath.Join(cfg.Storage.DataDir, "models")
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return fmt.Errorf("creating data directories: %w", err)
	}

	// Refuse to double-start. The health endpoint is authoritative; the PID
	// file only names the culprit.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/healthz", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("faqforge is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("faqforge is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := engine.Detect(engine.DetectConfig{RunnerBaseURL: cfg.Runner.BaseURL})
	if err != nil {
		return fmt.Errorf("detecting completion engine: %w", err)
	}
	if err := engine.EnsureReady(ctx, eng, cfg.Runner.BaseModel, os.Stderr); err != nil {
		return err
	}

	cat := catalog.Default()
	if cfg.Catalog.Path != "" {
		cat, err = catalog.Load(cfg.Catalog.Path)
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
	}

	trainOpts := engine.TrainOptionsFromConfig(cfg.Train)
	genOpts := engine.GenerateOptionsFromConfig(cfg.Generate)
	reg := registry.New(eng, modelsDir, trainOpts, genOpts)
	builder := dataset.New(cat)
	exporter := export.New(cfg.Storage.DataDir)

	handler := api.NewHandler(api.Deps{
		Registry:  reg,
		Catalog:   cat,
		Builder:   builder,
		Exporter:  exporter,
		Engine:    eng,
		Sources:   source.New(),
		TrainOpts: trainOpts,
		Token:     cfg.Server.APIToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "faqforge listening on http://%s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if watchPath, _ := cmd.Flags().GetString("watch"); watchPath != "" {
		name, _ := cmd.Flags().GetString("chatbot")
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(watchPath), filepath.Ext(watchPath))
		}
		industry, _ := cmd.Flags().GetString("industry")

		bot := reg.Create(name, industry)
		printStep("Watching %s for chatbot %q (%s)", watchPath, bot.Name, bot.ID)

		w := watch.New(watchPath, func(wctx context.Context, text string) {
			retrainWatched(wctx, reg, builder, exporter, trainOpts, bot.ID, text)
		})
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	return g.Wait()
}

// retrainWatched runs one training pass for the watched chatbot. Failures are
// logged, not fatal: the watcher keeps running and the next save tries again.
func retrainWatched(ctx context.Context, reg *registry.Registry, builder *dataset.Builder, exporter *export.Exporter, trainOpts engine.TrainOptions, chatbotID, text string) {
	bot, err := reg.Get(chatbotID)
	if err != nil {
		slog.Error("watched chatbot vanished", "chatbot", chatbotID, "error", err)
		return
	}
	model, err := reg.Session(chatbotID)
	if err != nil {
		slog.Error("watched chatbot vanished", "chatbot", chatbotID, "error", err)
		return
	}

	trainer := pipeline.NewTrainer(model, builder, exporter, trainOpts)
	res, err := trainer.Run(ctx, pipeline.Request{
		Name:      bot.Name,
		Industry:  bot.Industry,
		FAQText:   text,
		OutputDir: model.OutputDir(),
	}, nil)
	if err != nil {
		slog.Error("re-training failed", "chatbot", chatbotID, "error", err)
		return
	}

	if _, err := reg.RecordTraining(chatbotID, registry.TrainingRecord{
		Loss:           res.Loss,
		CheckpointPath: res.CheckpointPath,
		ExportPath:     res.ExportPath,
		Examples:       res.Examples,
		Pairs:          res.Pairs,
	}); err != nil {
		slog.Error("recording training result", "chatbot", chatbotID, "error", err)
		return
	}
	slog.Info("re-trained from watched file", "chatbot", chatbotID, "loss", res.Loss, "examples", res.Examples)
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
		printError("faqforge is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop faqforge (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to faqforge (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	var health struct {
		Status string `json:"status"`
		Runner bool   `json:"runner"`
	}
	running := false
	resp, err := client.Get(serverURL + "/healthz")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		if resp.StatusCode == 200 && json.NewDecoder(resp.Body).Decode(&health) == nil {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
		resp.Body.Close()
	}

	// When the server is up its health report covers the runner; otherwise
	// probe the runner directly.
	if running {
		if health.Runner {
			printStatus("Runner", "ready at %s", cfg.Runner.BaseURL)
		} else {
			printStatus("Runner", "not running")
		}
	} else {
		eng, detectErr := engine.Detect(engine.DetectConfig{RunnerBaseURL: cfg.Runner.BaseURL})
		if detectErr == nil && eng.IsRunning(ctx) {
			printStatus("Runner", "ready at %s", cfg.Runner.BaseURL)
		} else {
			printStatus("Runner", "not running")
		}
	}

	printStatus("Base model", "%s", cfg.Runner.BaseModel)

	if running {
		if c, clientErr := newAPIClient(); clientErr == nil {
			if botsResp, err := c.get(ctx, "/api/chatbots"); err == nil {
				var bots []json.RawMessage
				if decodeJSON(botsResp, &bots) == nil {
					printStatus("Chatbots", "%d", len(bots))
				}
			}
		}
	}

	printStatus("MCP port", "%d", cfg.Server.MCPPort)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
