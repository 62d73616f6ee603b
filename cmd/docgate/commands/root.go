// Package commands provides the CLI commands for docgate.
package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/docgate/docgate/internal/config"
	"github.com/docgate/docgate/internal/event"
	"github.com/docgate/docgate/internal/gateway"
	"github.com/docgate/docgate/internal/logging"
	"github.com/docgate/docgate/internal/provider"
	"github.com/docgate/docgate/pkg/types"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	printLogs  bool
	logLevel   string
	configFile string
	workDir    string
)

var rootCmd = &cobra.Command{
	Use:   "docgate",
	Short: "docgate - one streaming interface for document LLM calls",
	Long: `docgate sends documents to OpenAI, Gemini, Anthropic, Ark and any
OpenAI-compatible endpoint through a single interface.

Run 'docgate summarize report.pdf --encode' for a one-shot analysis, or
'docgate serve' to expose the gateway over HTTP.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Additional config file (same as DOCGATE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&workDir, "directory", "", "Project directory (default: current directory)")

	rootCmd.SetVersionTemplate(fmt.Sprintf("docgate %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(mcpCmd)
}

// Execute runs the root command.
func Execute() error {
	defer logging.Close()
	return rootCmd.Execute()
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return filepath.Abs(dir)
	}
	return os.Getwd()
}

// app is what every command needs: the loaded config and a gateway
// wired to the adapters and an event bus.
type app struct {
	dir     string
	config  *types.Config
	bus     *event.Bus
	gateway *gateway.Gateway
}

// bootstrap loads .env and the layered config, initializes logging, and
// builds the gateway. console forces logs to stderr.
func bootstrap(console bool) (*app, error) {
	dir, err := GetWorkDir(workDir)
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if configFile != "" {
		path, err := filepath.Abs(configFile)
		if err != nil {
			return nil, err
		}
		os.Setenv("DOCGATE_CONFIG", path)
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	initLogging(cfg, paths, console || printLogs)

	bus := event.NewBus()
	return &app{
		dir:     dir,
		config:  cfg,
		bus:     bus,
		gateway: gateway.New(provider.InitializeProviders(nil), cfg, bus),
	}, nil
}

func (a *app) close() {
	a.bus.Close()
}

// initLogging applies the log section of the config; the --log-level
// flag wins over the configured level.
func initLogging(cfg *types.Config, paths *config.Paths, console bool) {
	logging.Init(logging.FromSettings(cfg.Log, logLevel, console, paths.LogDir()))
}
