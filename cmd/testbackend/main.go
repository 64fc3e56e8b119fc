// Command testbackend runs an echo backend for exercising reverse proxies and
// load balancers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tanmay/testbackend/internal/config"
	"github.com/tanmay/testbackend/internal/server"
)

// runFunc starts the backend for a resolved configuration and blocks until
// ctx is cancelled.
type runFunc func(ctx context.Context, cfg *config.Config) error

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(run).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "testbackend: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	srv := server.New(cfg)
	if err := srv.Listen(); err != nil {
		return err
	}
	return srv.Serve(ctx)
}

func newRootCmd(runner runFunc) *cobra.Command {
	var (
		configPath string
		variant    string
		host       string
		logFormat  string
		adminPort  int
	)

	cmd := &cobra.Command{
		Use:   "testbackend [port]",
		Short: "Echo backend that describes every request it receives",
		Long: `testbackend answers GET requests with a description of the request
(JSON, or a line of text with --variant text) and POST requests with the
number of body bytes received. The optional port defaults to 9000 for the
json variant and 8899 for the text variant.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.LoadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			flags := cmd.Flags()
			if flags.Changed("variant") {
				cfg.Server.Variant = variant
			}
			if flags.Changed("host") {
				cfg.Server.Host = host
			}
			if flags.Changed("log-format") {
				cfg.Logging.Format = logFormat
			}
			if flags.Changed("admin-port") {
				cfg.Admin.Enabled = true
				cfg.Admin.Port = adminPort
			}

			cfg.Normalize()

			// The positional port wins over everything, and 0 asks for an
			// ephemeral port rather than the variant default.
			if len(args) == 1 {
				port, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid port %q: must be an integer", args[0])
				}
				cfg.Server.Port = port
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			return runner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	flags.StringVar(&variant, "variant", config.VariantJSON, `response variant: "json" or "text"`)
	flags.StringVar(&host, "host", "127.0.0.1", "address to bind the echo listener to")
	flags.StringVar(&logFormat, "log-format", "json", `access log format: "json" or "text"`)
	flags.IntVar(&adminPort, "admin-port", 9090, "enable the admin listener (health, metrics, dashboard) on this port")

	return cmd
}
