// Package main provides browserd, the remote browser session server.
// The process launches a single controllable browser engine instance,
// exposes it at a websocket control endpoint, and tears it down cleanly on
// SIGINT/SIGTERM. It exits 0 on graceful shutdown and 1 on launch or fatal
// runtime failure.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/entrhq/browserd/pkg/config"
	"github.com/entrhq/browserd/pkg/engine"
	"github.com/entrhq/browserd/pkg/logging"
	"github.com/entrhq/browserd/pkg/server"
)

const version = "0.1.0" // Version of the browserd session server

func main() {
	os.Exit(run())
}

func run() int {
	cfg, showVersion, err := resolveConfig()
	if showVersion {
		fmt.Printf("browserd v%s\n", version)
		return 0
	}

	log, logErr := logging.NewLogger("browserd")
	defer log.Close()
	if logErr != nil {
		log.Warnf("file logging unavailable: %v", logErr)
	}

	if err != nil {
		log.Errorf("fatal: %v", err)
		return 1
	}

	eng := engine.New(log)
	srv := server.New(cfg, eng, log, os.Stdout)

	// Signal handlers are thin adapters around the one shutdown entry
	// point; idempotence lives in the server, not here.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range sigChan {
			log.Infof("received %s, requesting shutdown", sig)
			srv.Shutdown()
		}
	}()

	if _, err := srv.Start(context.Background()); err != nil {
		if errors.Is(err, server.ErrStopped) {
			// Asked to stop before the launch began; nothing half-started.
			return 0
		}
		log.Errorf("fatal: %v", err)
		return 1
	}

	// Purely reactive from here: idle until a termination trigger
	// completes the teardown.
	<-srv.Done()
	return 0
}

// resolveConfig builds the frozen server configuration. Precedence, lowest
// to highest: documented defaults, optional YAML file, environment,
// explicitly set command-line flags.
func resolveConfig() (config.Config, bool, error) {
	var (
		configPath  string
		host        string
		port        int
		controlPath string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to optional YAML configuration file")
	flag.StringVar(&host, "host", config.DefaultHost, "Bind address for the control listener (or set BROWSERD_HOST)")
	flag.IntVar(&port, "port", config.DefaultPort, "Listen port, 0 for ephemeral (or set BROWSERD_PORT)")
	flag.StringVar(&controlPath, "ws-path", config.DefaultControlPath, "Control endpoint path segment (or set BROWSERD_WS_PATH)")
	flag.BoolVar(&showVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "browserd - remote browser session server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: browserd [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  BROWSERD_HOST       Bind address (default %s)\n", config.DefaultHost)
		fmt.Fprintf(os.Stderr, "  BROWSERD_PORT       Listen port (default %d)\n", config.DefaultPort)
		fmt.Fprintf(os.Stderr, "  BROWSERD_WS_PATH    Control endpoint path (default %q)\n", config.DefaultControlPath)
		fmt.Fprintf(os.Stderr, "  BROWSERD_WS_SCHEME  Announced endpoint scheme, ws or wss (default %q)\n", config.DefaultScheme)
		fmt.Fprintf(os.Stderr, "  BROWSERD_LOG_DIR    Directory for per-session log files (optional)\n")
		fmt.Fprintf(os.Stderr, "\nOn success the process writes exactly one line to stdout:\n")
		fmt.Fprintf(os.Stderr, "  server running at ws://<host>:<port>/<path>\n")
	}

	flag.Parse()

	if showVersion {
		return config.Config{}, true, nil
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFile(configPath)
		if err != nil {
			return cfg, false, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(); err != nil {
		return cfg, false, err
	}

	// Explicit flags win over file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = host
		case "port":
			cfg.Port = port
		case "ws-path":
			cfg.ControlPath = controlPath
		}
	})

	if err := cfg.Validate(); err != nil {
		return cfg, false, err
	}

	return cfg, false, nil
}
