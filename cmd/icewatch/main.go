package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/canalwatch/icewatch/internal/app"
	"github.com/canalwatch/icewatch/internal/constants"
	"github.com/canalwatch/icewatch/internal/log"
	"github.com/canalwatch/icewatch/pkg/config"
)

func main() {
	cfgFile := flag.String("config", "", "Path to an optional YAML configuration file. Environment variables override it.")
	envFile := flag.String("env-file", ".env", "Path to a .env file to load; ignored if it does not exist")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("icewatch %s\n", constants.Version)
		os.Exit(0)
	}

	// Load configuration before logging so the log file setting can apply
	cfgData, err := loadConfig(*cfgFile, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set up logging
	err = log.InitWithFile(*debug || cfgData.Log.Debug, log.FileOptions{
		Path:       cfgData.Log.File,
		MaxSizeMB:  cfgData.Log.MaxSizeMB,
		MaxBackups: cfgData.Log.MaxBackups,
		MaxAgeDays: cfgData.Log.MaxAgeDays,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfgData.Validate(); err != nil {
		log.Errorf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	// Create and run the application
	application := app.New(cfgData, log.GetSugaredLogger())
	if err := application.Run(context.Background()); err != nil {
		log.Errorf("Application error: %v", err)
		os.Exit(1)
	}
}

func loadConfig(cfgFile, envFile string) (*config.ConfigData, error) {
	var base config.ConfigProvider
	if cfgFile != "" {
		filename, _ := filepath.Abs(cfgFile)
		base = config.NewYAMLProvider(filename)
	}

	cfgData, err := config.NewEnvProvider(base, envFile).LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading configuration. Run with -h for help: %w", err)
	}

	return cfgData, nil
}
