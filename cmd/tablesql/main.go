// Package main is the entry point for the tablesql command.
//
// tablesql loads tabular files (CSV, TSV, JSON, XLSX, Markdown, Parquet,
// optionally compressed) into an embedded analytical engine and runs SQL
// against them, either a single query from the command line or statements
// read from stdin. Configuration is read from defaults, an optional YAML
// config file, and TABLESQL_* environment variables, in that order.
package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"

	"github.com/tablesql/tablesql"
)

// settings is the flat configuration surface of the command.
type settings struct {
	DataDir        string `koanf:"data_dir"`
	LargeThreshold int    `koanf:"large_table_threshold"`
	RowLimit       int    `koanf:"row_limit"`
	Threads        int    `koanf:"threads"`
	LogLevel       string `koanf:"log_level"`
	Restore        bool   `koanf:"restore"`
}

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "tablesql: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	query := flag.String("query", "", "SQL statement to run; reads statements from stdin when empty")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tablesql [flags] <file-or-directory>...\n\n")
		fmt.Fprintf(os.Stderr, "Loads tabular files and runs SQL against them.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := loadSettings(*configPath)
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("unknown log level: %q", cfg.LogLevel)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	storeCfg := tablesql.DefaultConfig()
	storeCfg.Logger = &logger
	if cfg.DataDir != "" {
		storeCfg.DataDir = cfg.DataDir
	}
	storeCfg.LargeTableThreshold = cfg.LargeThreshold
	storeCfg.DefaultRowLimit = cfg.RowLimit
	storeCfg.Threads = cfg.Threads

	paths := flag.Args()
	if len(paths) == 0 && !cfg.Restore {
		flag.Usage()
		return errors.New("no input files")
	}

	var store *tablesql.Store
	if len(paths) > 0 {
		store, err = tablesql.OpenWith(ctx, storeCfg, paths...)
		if err != nil {
			return err
		}
	} else {
		store, err = tablesql.NewStore(storeCfg)
		if err != nil {
			return err
		}
	}
	defer func() { _ = store.Close() }()

	if cfg.Restore {
		if err := store.Restore(ctx); err != nil {
			return err
		}
	}

	logger.Info().Strs("tables", store.TableNames()).Msg("tables loaded")

	if *query != "" {
		return runStatement(ctx, store, *query)
	}
	return runStdin(ctx, store)
}

// loadSettings layers defaults, the optional YAML file, and TABLESQL_*
// environment variables.
func loadSettings(configPath string) (*settings, error) {
	k := koanf.New(".")

	defaults := settings{
		LargeThreshold: 100_000,
		RowLimit:       3000,
		LogLevel:       "info",
	}
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	envProvider := env.Provider("TABLESQL_", ".", func(key string) string {
		return strings.ToLower(strings.TrimPrefix(key, "TABLESQL_"))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg settings
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// runStatement executes one statement and writes the result as CSV to
// stdout, followed by a row-count footer on stderr.
func runStatement(ctx context.Context, store *tablesql.Store, stmt string) error {
	result, err := store.Execute(ctx, stmt)
	if err != nil {
		return err
	}
	if err := writeResultCSV(result); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%d rows (%s)\n", result.RowCount, result.ExecutionTime.Round(time.Millisecond))
	return nil
}

// runStdin executes semicolon-free statements read line by line from stdin.
// Empty lines and lines starting with -- are skipped; a failing statement is
// reported and the loop continues.
func runStdin(ctx context.Context, store *tablesql.Store) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		if err := runStatement(ctx, store, line); err != nil {
			fmt.Fprintf(os.Stderr, "tablesql: %v\n", err)
		}
	}
	return scanner.Err()
}

func writeResultCSV(result *tablesql.QueryResult) error {
	w := csv.NewWriter(os.Stdout)
	if err := w.Write(result.Columns); err != nil {
		return err
	}
	for _, row := range result.Rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
