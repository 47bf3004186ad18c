package cli

import (
	"github.com/spf13/cobra"

	"github.com/artic-network/peartree/internal/server"
)

// serveCommand creates the serve command, which runs the HTTP API server.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		configPath string
		noMetrics  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the PearTree HTTP API server",
		Long: `Run the PearTree HTTP API server.

The server exposes a session-based API: open a tree once, then edit its
view through the session's sub-resources. Configuration is read from a
TOML file; flags override it. See the config file for cache (file, redis)
and session store (memory, mongo) backends.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := server.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}

			if !noMetrics {
				server.RegisterMetricsHooks()
			}

			srv, err := server.New(ctx, cfg, c.Logger)
			if err != nil {
				return err
			}
			defer srv.Close()

			printInfo("Serving on %s", cfg.Addr)
			printDetail("cache: %s, sessions: %s", cfg.Cache.Backend, cfg.Sessions.Backend)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "listen address")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "disable prometheus instrumentation")
	return cmd
}
