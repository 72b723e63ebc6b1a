// Command visionary runs the design assistant: an interactive chat REPL,
// an HTTP server for browser frontends, and workspace utilities.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	visionary "github.com/visionary-dev/visionary"
	"github.com/visionary-dev/visionary/internal/document"
	"github.com/visionary-dev/visionary/internal/palette"
	"github.com/visionary-dev/visionary/internal/persona"
	"github.com/visionary-dev/visionary/internal/provider"
	"github.com/visionary-dev/visionary/internal/server"
	"github.com/visionary-dev/visionary/pkg/config"
	"github.com/visionary-dev/visionary/pkg/observability"
	"github.com/visionary-dev/visionary/pkg/store"
)

// Version is set via ldflags.
var Version = "dev"

var configFile string

func main() {
	root := &cobra.Command{
		Use:     "visionary",
		Short:   "AI design assistant with a live Markdown canvas",
		Version: Version,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (YAML)")

	root.AddCommand(chatCmd(), serveCmd(), exportCmd(), resetCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	return config.Default(), nil
}

func buildStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		return store.NewMemoryStore(), nil
	case "file":
		return store.NewFileStore(cfg.Store.Dir)
	case "redis":
		return store.NewRedisStore(store.RedisConfig{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
			TTL:      cfg.Store.RedisTTL,
		})
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Store.Backend)
	}
}

func buildApp(ctx context.Context, cfg *config.Config) (*visionary.App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	var completion provider.CompletionProvider
	var realtime provider.RealtimeProvider

	switch cfg.Provider {
	case "openai":
		completion, err = provider.NewOpenAIProvider(cfg.OpenAIKey)
		if err != nil {
			return nil, err
		}
	default:
		gemini, gerr := provider.NewGeminiProvider(cfg.GeminiKey)
		if gerr != nil {
			return nil, gerr
		}
		completion = gemini
		realtime = gemini
	}

	app, err := visionary.New(ctx, cfg, st, completion, realtime, nil, nil)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return app, nil
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat with the live canvas",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			return runREPL(ctx, app)
		},
	}
}

// runREPL drives the terminal conversation loop. A trailing '@word'
// opens the persona menu, a trailing '/word' the saved prompt menu, same
// as the browser UI.
func runREPL(ctx context.Context, app *visionary.App) error {
	line := liner.NewLiner()
	defer func() { _ = line.Close() }()
	line.SetCtrlCAborts(true)

	historyPath := filepath.Join(os.TempDir(), ".visionary_history")
	if f, err := os.Open(historyPath); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(historyPath); err == nil {
			_, _ = line.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Printf("Persona: %s. Type a message, 'exit' to quit, ':help' for commands.\n",
		app.Persona().Label)
	if len(app.Messages()) == 0 {
		fmt.Println("Some ideas to get started:")
		for _, p := range persona.ExamplePrompts[:3] {
			fmt.Printf("  - %s\n", p)
		}
	}

	for ctx.Err() == nil {
		input, err := line.Prompt("you> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			return nil // EOF
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		switch {
		case input == "exit" || input == "quit":
			return nil
		case strings.HasPrefix(input, ":"):
			if done := runCommand(ctx, app, input); done {
				return nil
			}
			continue
		}

		// Command palette: trailing trigger opens a pick menu.
		if m := palette.Detect(input); m != nil {
			input = resolvePalette(line, app, input, m)
			if input == "" {
				continue
			}
		}

		if err := app.SubmitTurn(ctx, input, nil); err != nil {
			if errors.Is(err, visionary.ErrNoCredential) {
				fmt.Println("No API key configured. Set GEMINI_API_KEY or use ':key <value>'.")
				continue
			}
			// The transcript carries the notification text.
		}
		printLatest(app)
	}
	return nil
}

func resolvePalette(line *liner.State, app *visionary.App, input string, m *palette.Match) string {
	var candidates []palette.Candidate
	if m.Trigger == palette.TriggerPersona {
		candidates = palette.PersonaCandidates()
	} else {
		candidates = palette.PromptCandidates()
	}

	filtered := palette.Filter(candidates, m.Query)
	if len(filtered) == 0 {
		fmt.Println("No matches.")
		return ""
	}

	for i, c := range filtered {
		desc := c.Description
		if desc == "" && c.Text != "" {
			desc = c.Text
		}
		fmt.Printf("  %d) %s - %s\n", i+1, c.Label, desc)
	}

	pick, err := line.Prompt("pick> ")
	if err != nil {
		return ""
	}
	n, err := strconv.Atoi(strings.TrimSpace(pick))
	if err != nil || n < 1 || n > len(filtered) {
		return ""
	}

	sel := palette.Apply(input, m.Trigger, filtered[n-1])
	if sel.PersonaID != "" {
		app.SwitchPersona(sel.PersonaID)
		fmt.Printf("Switched to %s.\n", app.Persona().Label)
	}
	return strings.TrimSpace(sel.Input)
}

func runCommand(ctx context.Context, app *visionary.App, input string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case ":help":
		fmt.Println(":doc           show the canvas document")
		fmt.Println(":export md|json [file]  export the document")
		fmt.Println(":key <value>   set the API key")
		fmt.Println(":live          toggle the voice session")
		fmt.Println(":reset         clear transcript and canvas")
		fmt.Println(":quit          exit")
	case ":doc":
		doc := app.Document()
		fmt.Printf("--- v%d ---\n%s\n", doc.Version, doc.Content)
	case ":export":
		exportFromREPL(app, fields[1:])
	case ":key":
		if len(fields) < 2 {
			fmt.Println("usage: :key <value>")
			break
		}
		if err := app.SetCredential(ctx, fields[1]); err != nil {
			fmt.Printf("failed to store key: %v\n", err)
		} else {
			fmt.Println("API key stored.")
		}
	case ":live":
		if err := app.ToggleLive(ctx); err != nil {
			fmt.Printf("voice session: %v\n", err)
		} else {
			fmt.Printf("voice session: %s\n", app.LiveState())
		}
	case ":reset":
		if err := app.ClearSession(ctx); err != nil {
			fmt.Printf("reset failed: %v\n", err)
		} else {
			fmt.Println("Workspace reset.")
		}
	case ":quit", ":exit":
		return true
	default:
		fmt.Printf("unknown command %s\n", fields[0])
	}
	return false
}

func exportFromREPL(app *visionary.App, args []string) {
	format := "md"
	if len(args) > 0 {
		format = args[0]
	}

	var data []byte
	var err error
	switch format {
	case "md", "markdown":
		data = app.ExportMarkdown()
	case "json":
		data, err = app.ExportJSON()
	default:
		fmt.Printf("unknown format %q (want md or json)\n", format)
		return
	}
	if err != nil {
		fmt.Printf("export failed: %v\n", err)
		return
	}

	if len(args) > 1 {
		if err := os.WriteFile(args[1], data, 0600); err != nil {
			fmt.Printf("write failed: %v\n", err)
			return
		}
		fmt.Printf("Exported to %s.\n", args[1])
		return
	}
	fmt.Println(string(data))
}

func printLatest(app *visionary.App) {
	msgs := app.Messages()
	if len(msgs) == 0 {
		return
	}
	last := msgs[len(msgs)-1]

	if last.Thinking != "" {
		fmt.Printf("(thinking) %s\n", last.Thinking)
	}
	if last.Text != "" {
		fmt.Printf("%s> %s\n", app.Persona().Label, last.Text)
	}
	for i, s := range last.Suggestions {
		fmt.Printf("  %d) %s\n", i+1, s)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and event stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := observability.InitTracingFromEnv(); err != nil {
				log.Printf("[Main] tracing init failed: %v", err)
			}
			defer func() { _ = observability.ShutdownTracing(context.Background()) }()

			app, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			srv := server.New(app, cfg.Server)
			return srv.Run(ctx, cfg.Server.MetricsAddr)
		},
	}
}

func exportCmd() *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the persisted document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := buildStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			state, err := st.LoadDocument(cmd.Context())
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return errors.New("no document saved yet")
				}
				return err
			}

			var data []byte
			switch format {
			case "md", "markdown":
				data = []byte(state.Content)
			case "json":
				data, err = document.FromState(state).ExportJSON()
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q (want md or json)", format)
			}

			if out == "" {
				fmt.Println(string(data))
				return nil
			}
			return os.WriteFile(out, data, 0600)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "export format: md or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the persisted transcript and document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := buildStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Workspace reset.")
			return nil
		},
	}
}
