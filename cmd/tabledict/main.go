// tabledict is an interactive shell over a table-based input method
// dictionary: look up codes, list matches, and edit the user dictionary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tabledict/internal/config"
	"tabledict/internal/engine"
	"tabledict/internal/logging"
	"tabledict/internal/readline"
	"tabledict/internal/shell"
	"tabledict/internal/tabledict"

	_ "tabledict/internal/libime"
	_ "tabledict/internal/tableengine"
)

var version = "dev"

var (
	configPath  = flag.String("config", "", "path to config file (default: "+config.ConfigPath()+")")
	mainDict    = flag.String("main", "", "main dictionary path")
	userDict    = flag.String("user", "", "user dictionary path")
	engineName  = flag.String("engine", "", "dictionary engine")
	logLevel    = flag.String("log-level", "", "log level: debug, info, warn, error")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("tabledict %s (engines: %v)\n", version, engine.Names())
		return
	}
	if flag.NArg() > 0 {
		usage()
		os.Exit(2)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `tabledict - table dictionary shell

Usage: tabledict [options]

Options:
`)
	flag.PrintDefaults()
}

func run() error {
	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer logger.Close()
	logging.SetDefault(logger)

	watchConfig(loader, logger)
	defer loader.Close()

	abi, err := engine.Open(cfg.Engine, engine.Options{
		StatOutput: os.Stdout,
		Logger:     logger.WithComponent("engine").Logger,
	})
	if err != nil {
		return err
	}

	dict, err := tabledict.Open(abi, tabledict.Options{
		MainPath: cfg.Dict.Main,
		UserPath: cfg.Dict.User,
		Logger:   logger.WithComponent("dict").Logger,
	})
	if err != nil {
		return err
	}
	defer dict.Close()

	in, err := readline.New(readline.Options{
		Prompt:      cfg.Shell.Prompt,
		PromptColor: cfg.Shell.PromptColor,
		In:          os.Stdin,
		Out:         os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	defer in.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sh := shell.New(dict, in, os.Stdout, shell.WithLogger(logger.WithComponent("shell").Logger))
	return sh.Run(ctx)
}

// applyFlags overrides cfg with any flags given on the command line.
func applyFlags(cfg *config.Config) *config.Config {
	cfg = cfg.Clone()
	if *engineName != "" {
		cfg.Engine = *engineName
	}
	if *mainDict != "" {
		cfg.Dict.Main = *mainDict
	}
	if *userDict != "" {
		cfg.Dict.User = *userDict
	}
	if *logLevel != "" {
		cfg.Logging.Level = strings.ToLower(*logLevel)
	}
	cfg.ExpandPaths()
	return cfg
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	lc := logging.DefaultConfig()
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	lc.Level = level
	lc.Format = format
	lc.Output = cfg.Logging.Output
	lc.FilePath = cfg.Logging.FilePath
	return logging.New(lc)
}

// watchConfig follows config file edits. Only the log level is applied
// live; everything else needs a restart. A -log-level flag pins the level.
func watchConfig(loader *config.Loader, logger *logging.Logger) {
	if err := loader.Watch(); err != nil {
		logger.Debug("config watch unavailable", "error", err)
		return
	}
	loader.OnChange(func(cfg *config.Config) {
		if *logLevel != "" {
			return
		}
		level, err := logging.ParseLevel(cfg.Logging.Level)
		if err != nil {
			logger.Warn("ignoring log level from config", "error", err)
			return
		}
		logger.SetLevel(level)
		logger.Info("log level changed", "level", logging.LevelString(level))
	})
	go func() {
		for err := range loader.Errors() {
			logger.Warn("config reload failed", "error", err)
		}
	}()
}
