package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/cpanmeta/internal/server"
	"github.com/matzehuels/cpanmeta/pkg/store"
)

// serveCommand creates the serve command, which runs the HTTP API until
// interrupted.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		root    string
		save    bool
		offline bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the resolution API over HTTP",
		Long: `Serve exposes resolve and discover over HTTP. Request directories are
relative to --root and may not leave it.

Routes: GET /healthz, GET /version, GET /v1/discover, POST /v1/resolve,
GET /v1/results/{id}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("addr") {
				addr = c.Config.Server.Addr
			}
			if !cmd.Flags().Changed("root") {
				root = c.Config.Server.Root
			}
			timeout, err := c.Config.toolTimeout()
			if err != nil {
				return err
			}

			runner, err := c.newRunner(ctx, false, offline, timeout)
			if err != nil {
				return err
			}
			defer runner.Close()

			var st store.Store
			if save {
				if st, err = c.newStore(ctx); err != nil {
					return err
				}
				defer st.Close()
			}

			srv, err := server.New(server.Config{
				Addr:   addr,
				Root:   root,
				Runner: runner,
				Store:  st,
				Logger: c.Logger,
			})
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&root, "root", ".", "directory requests are resolved against")
	cmd.Flags().BoolVar(&save, "save", false, "enable result storage (resolve with \"save\": true, /v1/results)")
	cmd.Flags().BoolVar(&offline, "offline", false, "read static manifests only, never run perl or cpanm")

	return cmd
}
