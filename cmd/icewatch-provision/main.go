package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/canalwatch/icewatch/internal/database"
	"github.com/canalwatch/icewatch/internal/log"
	"github.com/canalwatch/icewatch/internal/managers"
	"github.com/canalwatch/icewatch/internal/storage/sqlite"
	"github.com/canalwatch/icewatch/pkg/config"
)

// Color constants
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[92m"
	colorRed    = "\033[91m"
	colorYellow = "\033[93m"
	colorBold   = "\033[1m"
)

func main() {
	initCmd := flag.NewFlagSet("init", flag.ExitOnError)
	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)

	initConfig := initCmd.String("config", "", "Path to an optional YAML configuration file")
	initEnv := initCmd.String("env-file", ".env", "Path to a .env file to load")

	checkConfig := checkCmd.String("config", "", "Path to an optional YAML configuration file")
	checkEnv := checkCmd.String("env-file", ".env", "Path to a .env file to load")
	checkTimeout := checkCmd.Duration("timeout", 10*time.Second, "How long to wait for the store to answer")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if err := log.Init(false); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	switch os.Args[1] {
	case "init":
		initCmd.Parse(os.Args[2:])
		os.Exit(runInit(*initConfig, *initEnv))

	case "check":
		checkCmd.Parse(os.Args[2:])
		os.Exit(runCheck(*checkConfig, *checkEnv, *checkTimeout))

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("icewatch store provisioner")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  icewatch-provision init [flags]")
	fmt.Println("  icewatch-provision check [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init     Create the readings table for the sqlite or timescaledb backend")
	fmt.Println("  check    Validate the configuration and test the store connection")
	fmt.Println()
	fmt.Println("Configuration is read the same way the server reads it: an optional")
	fmt.Println("YAML file, then .env, then the process environment.")
}

func loadConfig(cfgFile, envFile string) (*config.ConfigData, error) {
	var base config.ConfigProvider
	if cfgFile != "" {
		base = config.NewYAMLProvider(cfgFile)
	}
	return config.NewEnvProvider(base, envFile).LoadConfig()
}

func runInit(cfgFile, envFile string) int {
	cfg, err := loadConfig(cfgFile, envFile)
	if err != nil {
		fail("error loading configuration: %v", err)
		return 1
	}

	if missing := cfg.Store.MissingFields(); len(missing) > 0 {
		fail("%s store is missing %s", cfg.Store.Backend, strings.Join(missing, ", "))
		return 1
	}

	ctx := context.Background()

	switch cfg.Store.Backend {
	case config.BackendSQLite:
		if err := sqlite.Provision(ctx, cfg.Store.SQLite.Path); err != nil {
			fail("%v", err)
			return 1
		}
		ok("SQLite database %s is ready", cfg.Store.SQLite.Path)

	case config.BackendTimescaleDB:
		db, err := database.CreateConnection(cfg.Store.TimescaleDB.ConnectionString)
		if err != nil {
			fail("could not connect to TimescaleDB: %v", err)
			return 1
		}
		if err := database.Migrate(db, cfg.Store.TimescaleDB.Table); err != nil {
			fail("%v", err)
			return 1
		}
		ok("TimescaleDB table %s is ready", cfg.Store.TimescaleDB.Table)

	case config.BackendCosmos:
		warn("Cosmos DB containers are created in Azure; nothing to do. Run 'check' to test access.")

	default:
		fail("unsupported store backend: %s", cfg.Store.Backend)
		return 1
	}

	return 0
}

func runCheck(cfgFile, envFile string, timeout time.Duration) int {
	cfg, err := loadConfig(cfgFile, envFile)
	if err != nil {
		fail("error loading configuration: %v", err)
		return 1
	}

	status := 0

	if err := cfg.Validate(); err != nil {
		fail("configuration is invalid:\n%v", err)
		status = 1
	} else {
		ok("configuration is valid (%d locations)", len(cfg.Locations))
	}

	if missing := cfg.Store.MissingFields(); len(missing) > 0 {
		warn("%s store is missing %s; the server would start without data", cfg.Store.Backend, strings.Join(missing, ", "))
		return 1
	}

	store, err := managers.OpenStore(cfg.Store)
	if err != nil {
		fail("%v", err)
		return 1
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		fail("%s store is not reachable: %v", store.Backend(), err)
		return 1
	}
	ok("%s store is reachable", store.Backend())

	return status
}

func ok(format string, args ...any) {
	fmt.Printf("%s✓%s %s\n", colorGreen, colorReset, fmt.Sprintf(format, args...))
}

func warn(format string, args ...any) {
	fmt.Printf("%s!%s %s\n", colorYellow, colorReset, fmt.Sprintf(format, args...))
}

func fail(format string, args ...any) {
	fmt.Printf("%s%s✗%s %s\n", colorBold, colorRed, colorReset, fmt.Sprintf(format, args...))
}
