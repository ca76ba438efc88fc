package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

// version is stamped at build time:
//
//	go build -ldflags "-X main.version=$(git describe --tags --always)"
var version = "dev"

func main() {
	configFlag := flag.String("config", "", "Configuration file")
	scriptFlag := flag.String("script", "", "Fetch script (overrides the configured one)")
	verboseFlag := flag.Bool("verbose", false, "Echo log output to stdout")
	flag.Parse()

	if *configFlag == "" {
		log.Fatal("Missing required parameter: --config")
	}
	cfg, err := loadConfig(*configFlag)
	if err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}
	if *verboseFlag {
		cfg.Logging.Verbose = true
	}

	zl, err := initLogging(cfg)
	if err != nil {
		log.Fatalf("Error setting up logging: %v", err)
	}
	defer zl.Sync()
	logger.Infow("starting", "version", version, "pid", os.Getpid())

	lockPath := cfg.Files.LockFile
	if lockPath == "" {
		lockPath = filepath.Join(os.TempDir(), "fetchsync.lock")
	}
	lock, err := acquireLock(lockPath)
	if err != nil {
		logger.Fatalw("another instance is running", "err", err)
	}
	defer lock.Release()

	registry := NewProcessedRegistry(cfg.Files.DatFile)
	registry.Load()
	if cfg.Files.NewDatFile {
		// Fresh-ledger run: drop the file but keep the loaded view, so
		// unchanged files skip the transfer and re-record into the new
		// ledger.
		registry.DeleteFile()
	}

	// Retrieved files land in the destination directory.
	if dest := cfg.Files.Destination; dest != "" {
		if err := os.MkdirAll(dest, 0755); err != nil {
			logger.Fatalw("cannot create destination", "dir", dest, "err", err)
		}
		if err := os.Chdir(dest); err != nil {
			logger.Fatalw("cannot enter destination", "dir", dest, "err", err)
		}
	}

	scriptPath := *scriptFlag
	if scriptPath == "" {
		scriptPath = cfg.Files.Script
	}
	if scriptPath != "" {
		runScript(cfg, registry, scriptPath)
	}

	if cfg.Archive.Dir != "" {
		runArchive(cfg)
	}
}

func runScript(cfg *Config, registry *ProcessedRegistry, scriptPath string) {
	f, err := os.Open(scriptPath)
	if err != nil {
		logger.Fatalw("cannot open fetch script", "script", scriptPath, "err", err)
	}
	defer f.Close()

	logger.Infow("running fetch script", "script", scriptPath)
	si := NewScriptInterpreter(cfg, registry)
	if err := si.Run(f); err != nil {
		if errors.Is(err, errListingAborted) {
			logger.Errorw("run aborted", "err", err)
			os.Exit(1)
		}
		logger.Fatalw("script failed", "script", scriptPath, "err", err)
	}
	logger.Infow("finished fetch script", "script", scriptPath)
}

func runArchive(cfg *Config) {
	mgr := NewArchiveManager(cfg)
	mgr.Load()
	for _, cat := range cfg.Categories {
		for _, spec := range cat.Specs {
			mgr.ExpandFileSpec(cat.OriginDir, spec, cat.Name)
		}
		if err := mgr.Process(cat.Name); err != nil {
			logger.Warnw("archive pass incomplete", "category", cat.Name, "err", err)
		}
	}

	if !cfg.Archive.Watch {
		return
	}
	stop := make(chan struct{})
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		<-ch
		close(stop)
	}()
	if err := watchOrigins(cfg, mgr, stop); err != nil {
		logger.Errorw("watcher failed", "err", err)
	}
}
