// Command fetch-mcp starts the MCP fetch server over the selected
// transport: `fetch-mcp stdio` speaks newline-delimited JSON on
// stdin/stdout, `fetch-mcp sse` serves the SSE binding over HTTP.
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"fetch-mcp/internal/fetch"
	"fetch-mcp/internal/mcp"
	"fetch-mcp/internal/server"
	"fetch-mcp/internal/stdio"
)

type config struct {
	Host          string        `env:"FETCHMCP_HOST" envDefault:"localhost"`
	Port          string        `env:"FETCHMCP_PORT" envDefault:"8000"`
	SSEPath       string        `env:"FETCHMCP_SSE_PATH" envDefault:"/sse"`
	Endpoint      string        `env:"FETCHMCP_ENDPOINT" envDefault:"/messages"`
	ServerName    string        `env:"FETCHMCP_SERVER_NAME" envDefault:"fetch-mcp"`
	ServerVersion string        `env:"FETCHMCP_SERVER_VERSION" envDefault:"1.0.0"`
	FetchTimeout  time.Duration `env:"FETCHMCP_FETCH_TIMEOUT" envDefault:"30s"`
	Token         string        `env:"FETCHMCP_TOKEN"`
}

func main() {
	root := &cobra.Command{
		Use:           "fetch-mcp",
		Short:         "MCP server that fetches web pages and converts them to Markdown",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(stdioCmd())
	root.AddCommand(sseCmd())

	if err := root.Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func stdioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Serve over stdin/stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			adapter, err := buildAdapter(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return stdio.New(adapter, logger).Serve(ctx, os.Stdin, os.Stdout)
		},
	}
}

func sseCmd() *cobra.Command {
	var host, port, ssePath, endpoint string

	cmd := &cobra.Command{
		Use:   "sse",
		Short: "Serve over HTTP with server-sent events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("sse-path") {
				cfg.SSEPath = ssePath
			}
			if cmd.Flags().Changed("endpoint") {
				cfg.Endpoint = endpoint
			}
			adapter, err := buildAdapter(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(server.Config{
				Host:     cfg.Host,
				Port:     cfg.Port,
				SSEPath:  cfg.SSEPath,
				Endpoint: cfg.Endpoint,
				Token:    cfg.Token,
			}, adapter, logger)
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "bind host (overrides FETCHMCP_HOST)")
	cmd.Flags().StringVar(&port, "port", "", "bind port (overrides FETCHMCP_PORT)")
	cmd.Flags().StringVar(&ssePath, "sse-path", "", "SSE push channel path (overrides FETCHMCP_SSE_PATH)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "message endpoint path (overrides FETCHMCP_ENDPOINT)")
	return cmd
}

// loadConfig parses configuration from the environment and sets up the
// process logger. Logs always go to stderr: on the stdio transport stdout
// is the wire.
func loadConfig() (config, *slog.Logger, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return cfg, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func buildAdapter(cfg config, logger *slog.Logger) (*mcp.Adapter, error) {
	pipeline := fetch.NewPipeline(cfg.FetchTimeout, logger)
	registry, err := mcp.NewRegistry(mcp.FetchURLTool(pipeline))
	if err != nil {
		return nil, err
	}
	info := mcp.ServerInfo{Name: cfg.ServerName, Version: cfg.ServerVersion}
	return mcp.NewAdapter(info, registry, logger), nil
}
