package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/mkoval/faqforge/internal/api"
	"github.com/mkoval/faqforge/internal/catalog"
	"github.com/mkoval/faqforge/internal/config"
	"github.com/mkoval/faqforge/internal/dataset"
	"github.com/mkoval/faqforge/internal/engine"
	"github.com/mkoval/faqforge/internal/export"
	"github.com/mkoval/faqforge/internal/faq"
	"github.com/mkoval/faqforge/internal/pipeline"
	"github.com/mkoval/faqforge/internal/registry"
	"github.com/mkoval/faqforge/internal/session"
	"github.com/mkoval/faqforge/internal/source"
	"github.com/mkoval/faqforge/internal/watch"
)

// localEnv wires the training stack for commands that run without a server.
type localEnv struct {
	cfg       config.Config
	engine    engine.Engine
	catalog   *catalog.Catalog
	registry  *registry.Registry
	builder   *dataset.Builder
	exporter  *export.Exporter
	trainOpts engine.TrainOptions
}

func newLocalEnv() (*localEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	setupLogging(cfg.Log.Level)

	modelsDir := filepath.Join(cfg.Storage.DataDir, "models")
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directories: %w", err)
	}

	eng, err := engine.Detect(engine.DetectConfig{RunnerBaseURL: cfg.Runner.BaseURL})
	if err != nil {
		return nil, fmt.Errorf("detecting completion engine: %w", err)
	}

	cat := catalog.Default()
	if cfg.Catalog.Path != "" {
		cat, err = catalog.Load(cfg.Catalog.Path)
		if err != nil {
			return nil, fmt.Errorf("loading catalog: %w", err)
		}
	}

	trainOpts := engine.TrainOptionsFromConfig(cfg.Train)
	return &localEnv{
		cfg:       cfg,
		engine:    eng,
		catalog:   cat,
		registry:  registry.New(eng, modelsDir, trainOpts, engine.GenerateOptionsFromConfig(cfg.Generate)),
		builder:   dataset.New(cat),
		exporter:  export.New(cfg.Storage.DataDir),
		trainOpts: trainOpts,
	}, nil
}

// loadFAQText resolves a --faqs reference: a local file (txt/pdf), an http(s)
// URL, or "-" for stdin. Empty means no custom FAQs.
func loadFAQText(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	if ref == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	return source.New().Load(ctx, ref)
}

// --- train ---

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fine-tune a chatbot without the server",
	Long: `Fine-tune a chatbot in-process and print the checkpoint path.

Examples:
  faqforge train --name "Corner Bakery" --industry restaurant --faqs ./faqs.txt
  faqforge train --name "Gym Rats" --industry fitness
  cat faqs.txt | faqforge train --name "Corner Bakery" --faqs -
  faqforge train --name "Corner Bakery" --faqs ./faqs.txt --watch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		industry, _ := cmd.Flags().GetString("industry")
		faqsRef, _ := cmd.Flags().GetString("faqs")
		dest, _ := cmd.Flags().GetString("export")
		watchMode, _ := cmd.Flags().GetBool("watch")

		if name == "" {
			return fmt.Errorf("--name is required")
		}
		if watchMode {
			if faqsRef == "" || faqsRef == "-" || strings.HasPrefix(faqsRef, "http://") || strings.HasPrefix(faqsRef, "https://") {
				return fmt.Errorf("--watch requires --faqs to be a local file")
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := newLocalEnv()
		if err != nil {
			return err
		}
		if err := engine.EnsureReady(ctx, env.engine, env.cfg.Runner.BaseModel, os.Stderr); err != nil {
			return err
		}

		text, err := loadFAQText(ctx, faqsRef)
		if err != nil {
			return fmt.Errorf("loading FAQs: %w", err)
		}

		bot := env.registry.Create(name, industry)
		if err := trainOnce(ctx, env, bot.ID, text, dest); err != nil {
			return err
		}

		if !watchMode {
			return nil
		}

		printStep("Watching %s; save the file to re-train (Ctrl+C to stop)", faqsRef)
		w := watch.New(faqsRef, func(wctx context.Context, changed string) {
			if err := trainOnce(wctx, env, bot.ID, changed, dest); err != nil {
				printError("re-training failed: %v", err)
			}
		})
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// trainOnce runs one pipeline pass for the chatbot, printing progress lines
// and the final status block.
func trainOnce(ctx context.Context, env *localEnv, chatbotID, text, dest string) error {
	bot, err := env.registry.Get(chatbotID)
	if err != nil {
		return err
	}
	model, err := env.registry.Session(chatbotID)
	if err != nil {
		return err
	}

	trainer := pipeline.NewTrainer(model, env.builder, env.exporter, env.trainOpts)
	res, err := trainer.Run(ctx, pipeline.Request{
		Name:      bot.Name,
		Industry:  bot.Industry,
		FAQText:   text,
		Dest:      dest,
		OutputDir: model.OutputDir(),
	}, func(e pipeline.Event) {
		switch {
		case e.Stage == pipeline.StageDone:
			// The status block is printed below.
		case e.Step > 0:
			printStep("Step %d/%d  loss %.4f", e.Step, e.MaxSteps, e.Loss)
		case e.Message != "":
			printStep("%s", e.Message)
		}
	})
	if err != nil {
		return err
	}

	if _, err := env.registry.RecordTraining(chatbotID, registry.TrainingRecord{
		Loss:           res.Loss,
		CheckpointPath: res.CheckpointPath,
		ExportPath:     res.ExportPath,
		Examples:       res.Examples,
		Pairs:          res.Pairs,
	}); err != nil {
		return err
	}

	fmt.Println(res.Status)
	printSuccess("Chat with it: faqforge ask --checkpoint %s --interactive", res.CheckpointPath)
	return nil
}

func init() {
	trainCmd.Flags().String("name", "", "business name (required)")
	trainCmd.Flags().String("industry", "", "industry whose samples to blend in (see 'faqforge industries')")
	trainCmd.Flags().String("faqs", "", "FAQ source: file path, URL, or '-' for stdin")
	trainCmd.Flags().String("export", "", "export destination (default: data dir)")
	trainCmd.Flags().Bool("watch", false, "keep watching the FAQ file and re-train on change")
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a fine-tuned chatbot a question",
	Long: `Ask a question against a fine-tuned checkpoint.

Examples:
  faqforge ask --checkpoint ~/.local/share/faqforge/models/2f3a... "What are your hours?"
  faqforge ask --checkpoint ./models/2f3a... --interactive`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		checkpoint, _ := cmd.Flags().GetString("checkpoint")
		interactive, _ := cmd.Flags().GetBool("interactive")

		if checkpoint == "" {
			return fmt.Errorf("--checkpoint is required")
		}
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" && !interactive {
			return fmt.Errorf("provide a question or use --interactive")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := newLocalEnv()
		if err != nil {
			return err
		}

		model := session.NewModel(env.engine, checkpoint, env.trainOpts, engine.GenerateOptionsFromConfig(env.cfg.Generate))
		chat := session.NewChat(model)

		if question != "" {
			answer, err := chat.Ask(ctx, question, checkpoint)
			if err != nil {
				return err
			}
			fmt.Println(answer)
			if !interactive {
				return nil
			}
		}

		fmt.Fprintln(os.Stderr, "Interactive chat. Empty line or Ctrl+D exits.")
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Fprint(os.Stderr, "> ")
			if !scanner.Scan() {
				break
			}
			q := strings.TrimSpace(scanner.Text())
			if q == "" {
				break
			}
			answer, err := chat.Ask(ctx, q, checkpoint)
			if err != nil {
				printError("%v", err)
				continue
			}
			fmt.Println(answer)
		}
		return scanner.Err()
	},
}

func init() {
	askCmd.Flags().String("checkpoint", "", "fine-tuned checkpoint directory (required)")
	askCmd.Flags().Bool("interactive", false, "chat in a REPL instead of one-shot")
}

// --- industries ---

var industriesCmd = &cobra.Command{
	Use:   "industries",
	Short: "List industries with built-in FAQ samples",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		cat := catalog.Default()
		if cfg.Catalog.Path != "" {
			cat, err = catalog.Load(cfg.Catalog.Path)
			if err != nil {
				return fmt.Errorf("loading catalog: %w", err)
			}
		}

		for _, ind := range cat.Industries() {
			fmt.Printf("  %s (%d samples)\n", colorize(colorBold, ind.Name), len(ind.Pairs))
		}
		return nil
	},
}

// --- parse ---

var parseCmd = &cobra.Command{
	Use:   "parse <file|url|->",
	Short: "Parse a FAQ source and preview the pairs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := loadFAQText(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("loading FAQs: %w", err)
		}

		pairs := faq.Parse(text)
		if len(pairs) == 0 {
			fmt.Println("No pairs found.")
			return nil
		}

		for i, p := range pairs {
			fmt.Printf("\n%s\n", colorize(colorBold, fmt.Sprintf("Pair %d", i+1)))
			fmt.Printf("  Q: %s\n", p.Question)
			fmt.Printf("  A: %s\n", p.Answer)
		}
		return nil
	},
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export business data as JSON without training",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		industry, _ := cmd.Flags().GetString("industry")
		faqsRef, _ := cmd.Flags().GetString("faqs")
		out, _ := cmd.Flags().GetString("out")

		if name == "" {
			return fmt.Errorf("--name is required")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		text, err := loadFAQText(cmd.Context(), faqsRef)
		if err != nil {
			return fmt.Errorf("loading FAQs: %w", err)
		}

		exporter := export.New(cfg.Storage.DataDir)
		path, err := exporter.Export(export.Business{Name: name, Industry: industry}, faq.Parse(text), out)
		if err != nil {
			return err
		}

		printSuccess("Data exported to %s", path)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("name", "", "business name (required)")
	exportCmd.Flags().String("industry", "", "business industry")
	exportCmd.Flags().String("faqs", "", "FAQ source: file path, URL, or '-' for stdin")
	exportCmd.Flags().String("out", "", "output file path (default: data dir)")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print where configuration is stored",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.Location())
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
}

// --- mcp ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the chatbot builder tools over MCP stdio",
	Long: `Serve the chatbot builder as an MCP server on stdin/stdout.

Tools: list_industries, parse_faqs, train_chatbot, ask_chatbot,
export_chatbot. Point an MCP client at 'faqforge mcp'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(cmd.Context())
	},
}

func runMCP(parent context.Context) error {
	env, err := newLocalEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tools fail cleanly per call when the runner is down, so a cold start
	// only warns instead of refusing to serve.
	if !env.engine.IsRunning(ctx) {
		fmt.Fprintln(os.Stderr, "warning: model runner is not reachable; training and chat tools will fail until it starts")
	}

	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Registry:  env.registry,
		Catalog:   env.catalog,
		Builder:   env.builder,
		Exporter:  env.exporter,
		TrainOpts: env.trainOpts,
	})

	stdioSrv := server.NewStdioServer(mcpSrv)
	if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
