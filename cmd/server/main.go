package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shogotsuneto/presto-driver/internal/config"
	"github.com/shogotsuneto/presto-driver/internal/server"
)

const shutdownGrace = 10 * time.Second

// options holds the parsed command line
type options struct {
	connectionsConfig string
	serverConfig      string
	port              string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	opts, code, ok := parseFlags(args, stderr)
	if !ok {
		return code
	}

	srv, err := newServer(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return serve(srv, opts.port, sigCh)
}

// parseFlags returns the options, or the exit code when the process should
// stop right away
func parseFlags(args []string, stderr io.Writer) (options, int, bool) {
	fs := flag.NewFlagSet("presto-driver", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.connectionsConfig, "connections-config", "", "Path to connections configuration YAML file")
	fs.StringVar(&opts.serverConfig, "server-config", "", "Path to server configuration YAML file (optional)")
	fs.StringVar(&opts.port, "port", "8080", "Port to run the server on")
	help := fs.Bool("help", false, "Show help message")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: presto-driver --connections-config ./connections.yaml [options]\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, 2, false
	}
	if *help {
		fs.Usage()
		return opts, 0, false
	}
	if opts.connectionsConfig == "" {
		fmt.Fprintf(stderr, "Error: --connections-config is required\n\n")
		fs.Usage()
		return opts, 2, false
	}
	return opts, 0, true
}

func newServer(opts options) (*server.Server, error) {
	log.Printf("Starting presto-driver on port %s", opts.port)

	connections, err := config.LoadConnectionsConfig(opts.connectionsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load connections config: %w", err)
	}
	log.Printf("Loaded %d connections from %s", len(connections.Connections), opts.connectionsConfig)

	var serverCfg *config.ServerConfig
	if opts.serverConfig != "" {
		serverCfg, err = config.LoadServerConfig(opts.serverConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to load server config: %w", err)
		}
		log.Printf("Loaded %d middleware configurations from %s", len(serverCfg.Middleware), opts.serverConfig)
	}

	return server.New(connections, serverCfg)
}

// serve runs srv until it fails or a signal arrives, then waits for the
// graceful shutdown up to shutdownGrace
func serve(srv *server.Server, port string, sigCh <-chan os.Signal) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start(ctx, port)
	}()

	select {
	case err := <-serverErrors:
		if err != nil {
			log.Printf("Server failed: %v", err)
			return 1
		}
		return 0
	case sig := <-sigCh:
		log.Printf("Received %s, shutting down", sig)
	}

	cancel()
	select {
	case <-srv.Done():
		log.Printf("Server shutdown completed")
		return 0
	case <-time.After(shutdownGrace):
		log.Printf("Server shutdown timed out after %v", shutdownGrace)
		return 1
	}
}
