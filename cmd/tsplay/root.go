package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/caffeineduck/tsplay/executor"
	"github.com/caffeineduck/tsplay/internal/config"
	"github.com/caffeineduck/tsplay/internal/logger"
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "tsplay [file]",
		Short: "TypeScript playground: check and run snippets in a sandbox",
		Long: `tsplay - Type-check and run TypeScript snippets safely.

Code is checked first; it only runs when there are no errors. Running code
sees console and timers and nothing else: no filesystem, network, or
process access. Runs are bounded by a timeout.

Run code from files, inline strings, or stdin. Without a subcommand tsplay
behaves like "tsplay run".`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Config file (YAML)")
	pf.String("env-file", ".env", "Environment file loaded before reading TSPLAY_* variables")
	pf.String("engine", "goja", "Execution engine: goja, quickjs")
	pf.Duration("timeout", executor.DefaultTimeout, "Execution timeout")
	pf.String("analyzer", "auto", "Analyzer: auto (tsc when installed), typescript (in-process), tsc (external compiler)")
	pf.Int("memory-mb", 0, "Memory limit for the quickjs engine in MB (0 = no limit)")
	pf.Bool("no-cache", false, "Disable the diagnostics and compilation caches")
	pf.String("log-level", "warn", "Log level: debug, info, warn, error")
	pf.String("log-format", "console", "Log format: console, json")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.load(cmd)
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if a.log != nil {
			_ = a.log.Sync()
		}
	}

	// Default to run command behavior.
	addRunFlags(rootCmd)
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return a.runRun(cmd, args)
	}

	rootCmd.AddCommand(
		newRunCmd(a),
		newCheckCmd(a),
		newReplCmd(a),
		newServeCmd(a),
		newEngineCmd(a),
		newExamplesCmd(a),
	)
	return rootCmd
}

// configFlags maps config keys to the flags that override them.
var configFlags = map[string]string{
	"engine.name":            "engine",
	"engine.timeout":         "timeout",
	"engine.memory_limit_mb": "memory-mb",
	"analyzer.name":          "analyzer",
	"log.level":              "log-level",
	"log.format":             "log-format",
	"server.addr":            "addr",
	"server.debounce":        "debounce",
}

func (a *app) load(cmd *cobra.Command) error {
	configFile, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")

	flags := make(map[string]*pflag.Flag, len(configFlags))
	for key, name := range configFlags {
		if f := cmd.Flags().Lookup(name); f != nil {
			flags[key] = f
		}
	}

	cfg, err := config.Load(config.Options{
		ConfigFile: configFile,
		EnvFile:    envFile,
		Flags:      flags,
	})
	if err != nil {
		return err
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Cache.Backend = "none"
		cfg.Engine.DiskCache = false
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	a.cfg = cfg
	a.log = log
	return nil
}
