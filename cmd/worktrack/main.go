package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/sevlyar/go-daemon"

	"worktrack/internal/app"
	"worktrack/internal/config"
)

var (
	configPath = flag.String("c", "", "Path to configuration file (e.g., config.yaml). Defaults to ./config.yaml, ~/.config/worktrack/config.yaml, /etc/worktrack/config.yaml")
	logPath    = flag.String("log", "", "Path to log file (optional, defaults to stderr)")
	daemonize  = flag.Bool("d", false, "Run in the background (requires -log)")
	pidPath    = flag.String("pid", "worktrack.pid", "PID file used in daemon mode")
)

// setupLogging configures the log output destination.
func setupLogging(logFilePath string) (*os.File, error) {
	if logFilePath == "" {
		log.SetOutput(os.Stderr)
		log.Println("Logging to stderr")
		return nil, nil
	}

	dir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", logFilePath, err)
	}

	log.SetOutput(file)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Printf("Logging to file: %s", logFilePath)
	return file, nil
}

// detach forks a background copy of the process. done is true in the
// parent, which should exit; the child defers release.
func detach() (release func(), done bool, err error) {
	if *logPath == "" {
		return nil, false, fmt.Errorf("daemon mode needs -log, stderr is detached")
	}
	dctx := &daemon.Context{
		PidFileName: *pidPath,
		PidFilePerm: 0644,
		WorkDir:     "./",
		Umask:       027,
	}
	child, err := dctx.Reborn()
	if err != nil {
		return nil, false, fmt.Errorf("daemonize: %w", err)
	}
	if child != nil {
		fmt.Printf("worktrack started in background (pid %d)\n", child.Pid)
		return nil, true, nil
	}
	return func() {
		if err := dctx.Release(); err != nil {
			log.Printf("Warning: failed to release pid file: %v", err)
		}
	}, false, nil
}

func main() {
	flag.Parse()

	if *daemonize {
		release, parent, err := detach()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if parent {
			return
		}
		defer release()
	}

	logFile, logErr := setupLogging(*logPath)
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "Error setting up file logging: %v. Logging to stderr instead.\n", logErr)
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to create application: %v", err)
	}

	// Blocks until SIGINT/SIGTERM.
	if err := application.Run(); err != nil {
		log.Fatalf("FATAL: Application exited with error: %v", err)
	}

	log.Println("WorkTrack finished successfully.")
}
