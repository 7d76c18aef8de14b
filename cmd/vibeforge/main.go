package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"vibeforge/internal/analysis"
	"vibeforge/internal/config"
	"vibeforge/internal/corrector"
	"vibeforge/internal/fileset"
	"vibeforge/internal/gemini"
	"vibeforge/internal/logging"
	"vibeforge/internal/report"
	"vibeforge/internal/sandbox"
	"vibeforge/internal/security"
	"vibeforge/internal/tester"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "1.0.0"

// Distinguish "the candidate project is bad" from CLI usage errors so the
// process can exit nonzero after all cleanup hooks have run.
var (
	errProjectFailed        = errors.New("project failed validation")
	errCorrectionIncomplete = errors.New("correction did not fully succeed")
)

var (
	// Global flags
	verbose    bool
	configPath string
	apiKey     string
	workDir    string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "vibeforge",
	Short: "vibeforge - validation and self-correction engine for generated Python",
	Long: `vibeforge validates machine-generated Python projects and repairs them.

A project is screened for dangerous constructs, statically analyzed, and
executed inside a sandboxed harness with time and output limits. Failing
projects enter a correction loop that escalates through fix strategies and
AI personas until the project passes or the attempt budget runs out.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if apiKey != "" {
			cfg.Gemini.APIKey = apiKey
		}
		if workDir != "" {
			cfg.Paths.WorkDir = workDir
		}
		if verbose {
			cfg.Logging.DebugMode = true
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		if err := logging.Initialize(logging.Options{
			Dir:        cfg.Paths.LogsDir,
			DebugMode:  cfg.Logging.DebugMode,
			Level:      cfg.Logging.Level,
			JSONFormat: cfg.Logging.JSONFormat,
			Categories: cfg.Logging.Categories,
		}); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// testCmd validates a project without correcting it
var testCmd = &cobra.Command{
	Use:   "test [project-dir]",
	Short: "Validate a Python project: security gate, static analysis, sandboxed run",
	Args:  cobra.ExactArgs(1),
	RunE:  runTest,
}

// correctCmd validates and repairs a project
var correctCmd = &cobra.Command{
	Use:   "correct [project-dir]",
	Short: "Validate a project and repair it through the correction loop",
	Long: `Runs the full validation pipeline and, if the project fails, drives the
correction loop against the Gemini API. Corrected files are written to the
output directory (default: <project-dir>.corrected).`,
	Args: cobra.ExactArgs(1),
	RunE: runCorrect,
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vibeforge %s\n", version)
	},
}

var outputDir string

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "vibeforge.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Gemini API key (or set GEMINI_API_KEY)")
	rootCmd.PersistentFlags().StringVarP(&workDir, "work-dir", "w", "", "Sandbox work directory")

	correctCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for corrected files")

	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(correctCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runTest(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	projectDir := args[0]
	files, err := fileset.LoadDir(projectDir)
	if err != nil {
		return err
	}

	logger.Info("Testing project",
		zap.String("dir", projectDir),
		zap.Int("files", files.Len()))

	orch := buildOrchestrator()
	rep := orch.TestProject(ctx, files, projectName(projectDir))

	printReport(rep)
	if !rep.Success {
		return errProjectFailed
	}
	return nil
}

func runCorrect(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	projectDir := args[0]
	files, err := fileset.LoadDir(projectDir)
	if err != nil {
		return err
	}

	name := projectName(projectDir)
	orch := buildOrchestrator()

	logger.Info("Testing project before correction", zap.String("dir", projectDir))
	initial := orch.TestProject(ctx, files, name)
	printReport(initial)

	if initial.Success {
		fmt.Println("Project already passes, nothing to correct.")
		return nil
	}

	client, err := gemini.NewClient(ctx, cfg.Gemini)
	if err != nil {
		return err
	}
	defer client.Close()

	engine := corrector.NewEngine(client, orch, cfg.Testing.MaxCorrectionAttempts)
	session := engine.CorrectProject(ctx, name, files, initial)

	fmt.Printf("\nCorrection session: success=%v score=%.1f attempts=%d time=%.1fs\n",
		session.Success, session.FinalScore, len(session.Attempts), session.TotalTime.Seconds())
	for _, a := range session.Attempts {
		fmt.Printf("  attempt %d: strategy=%s persona=%s result=%s improvement=%.1f%%\n",
			a.Number, a.Strategy, a.Persona, a.Report.Classification, a.ImprovementScore)
	}

	out := outputDir
	if out == "" {
		out = projectDir + ".corrected"
	}
	if err := session.FinalFiles.WriteDir(out); err != nil {
		return fmt.Errorf("failed to write corrected files: %w", err)
	}
	fmt.Printf("Final files written to %s\n", out)

	if !session.Success {
		return errCorrectionIncomplete
	}
	return nil
}

func buildOrchestrator() *tester.Orchestrator {
	harness := sandbox.NewHarness(sandbox.Options{
		WorkRoot:       cfg.Paths.WorkDir,
		PythonBinary:   cfg.Testing.PythonBinary,
		Timeout:        cfg.ExecutionTimeout(),
		MaxOutputBytes: cfg.Testing.MaxOutputBytes,
	})
	return tester.NewOrchestrator(security.NewGate(), analysis.NewAnalyzer(), harness)
}

func printReport(rep *report.TestReport) {
	fmt.Printf("\nResult: %s (success=%v, %.2fs", rep.Classification, rep.Success, rep.ExecutionTimeSeconds)
	if rep.PeakMemoryMB > 0 {
		fmt.Printf(", peak %.1f MB", rep.PeakMemoryMB)
	}
	fmt.Println(")")

	printList := func(label string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Printf("%s:\n", label)
		for _, item := range items {
			fmt.Printf("  - %s\n", item)
		}
	}
	printList("Security issues", rep.SecurityIssues)
	printList("Syntax issues", rep.SyntaxIssues)
	printList("Runtime issues", rep.RuntimeIssues)
	printList("Errors", rep.Errors)
	printList("Warnings", rep.Warnings)
	printList("Suggestions", rep.Suggestions)
}

func projectName(dir string) string {
	base := filepath.Base(filepath.Clean(dir))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "project"
	}
	return base
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
