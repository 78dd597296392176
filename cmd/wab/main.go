package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"wab-go/internal/app"
	"wab-go/internal/config"
	"wab-go/internal/wab"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// exitCode distinguishes "completed with warnings" (2) from fatal errors (1).
var exitCode int

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}

// loadConfig reads the config file if present and applies flag overrides on
// top. Running purely from flags, with no config file, is supported.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		cfg = config.NewConfig(defaults["base_dir"])
	}
	if cfg.LogDir == "" {
		cfg.LogDir = defaults["log_dir"]
	}

	if inputs, _ := cmd.Flags().GetStringArray("input"); len(inputs) > 0 {
		cfg.InputDirs = inputs
	}
	if output, _ := cmd.Flags().GetString("output"); output != "" {
		cfg.OutputDir = output
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers, _ = cmd.Flags().GetInt("workers")
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:   "wab",
	Short: "Browsable HTML archive generator for exported chats",
	Long: `wab converts exported chat archives (directories or zip files containing
a _chat.txt transcript plus media) into a static, browsable HTML tree.
Re-running it regenerates only the pages whose inputs changed.`,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Scan inputs and regenerate changed pages",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		a, err := app.NewApp(cfg, "Generate")
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		summary, err := a.Generate(cmd.Context())
		if err != nil {
			return err
		}

		printSummary(summary)
		if !summary.Report.Clean() {
			exitCode = 2
		}
		return nil
	},
}

func printSummary(s *wab.RunSummary) {
	interactive := term.IsTerminal(int(os.Stdout.Fd()))

	fmt.Printf("%d chat(s), %d file(s) known\n", s.Chats, s.Files)
	fmt.Printf("Regenerated %d of %d changed page(s) in %s\n", s.Rendered, s.Dirty, s.Duration.Round(time.Millisecond))

	for _, w := range s.Report.Warnings {
		if interactive {
			fmt.Printf("  warning: %s\n", w)
		} else {
			fmt.Printf("warning\t%s\n", w)
		}
	}
	for _, d := range s.Report.Defects {
		if interactive {
			fmt.Printf("  DEFECT: %s\n", d)
		} else {
			fmt.Printf("defect\t%s\n", d)
		}
	}
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the persisted state of an output directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.OutputDir == "" {
			return fmt.Errorf("no output directory configured (use --output or the config file)")
		}

		a, err := app.NewApp(cfg, "Status")
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		st, err := a.Status()
		if err != nil {
			return err
		}

		if !st.StateExists {
			fmt.Printf("No state at %s (never generated, or state was removed)\n", st.StatePath)
			return nil
		}
		fmt.Printf("State: %s\n", st.StatePath)
		fmt.Printf("Files: %d known, %d present in last scan\n", st.FilesKnown, st.FilesPresent)
		fmt.Printf("Chats: %d\n", len(st.Chats))
		for _, c := range st.Chats {
			years := make([]string, len(c.Years))
			for i, y := range c.Years {
				years[i] = fmt.Sprintf("%d", y)
			}
			fmt.Printf("  %s: %d message(s), years %s\n", c.Name, c.Messages, strings.Join(years, " "))
		}
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Log Dir: %s\n", cfg.LogDir)
		fmt.Println("Set input_dirs and output_dir before running wab generate.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Input Dirs: %s\n", strings.Join(cfg.InputDirs, ", "))
		fmt.Printf("Output Dir: %s\n", cfg.OutputDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Workers:    %d (effective %d)\n", cfg.Workers, cfg.EffectiveWorkers())
		return nil
	},
}

func init() {
	generateCmd.Flags().StringArrayP("input", "i", nil, "input directory containing chat exports (repeatable)")
	generateCmd.Flags().StringP("output", "o", "", "output directory for the HTML tree")
	generateCmd.Flags().Int("workers", 0, "parse parallelism (0 = number of CPUs)")

	statusCmd.Flags().StringP("output", "o", "", "output directory to inspect")
	statusCmd.Flags().StringArray("input", nil, "")
	statusCmd.Flags().Int("workers", 0, "")
	_ = statusCmd.Flags().MarkHidden("input")
	_ = statusCmd.Flags().MarkHidden("workers")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.SilenceUsage = true
}
