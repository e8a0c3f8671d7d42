package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"greycells/internal/app"
	"greycells/internal/config"
)

func newServeSandboxCmd(c *cli) *cobra.Command {
	var sc config.SandboxConfig
	cmd := &cobra.Command{
		Use:   "serve-sandbox",
		Short: "Serve the remote execution sandbox over a websocket",
		Long: `Runs jobs sent by SANDBOX_MODE=remote clients on ws://ADDR/run. Jobs are
arbitrary shell commands; run it inside a disposable container. It listens on
loopback unless --listen says otherwise, and with --token (or SANDBOX_TOKEN)
clients must send the same SANDBOX_TOKEN.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("listen") {
				if v := os.Getenv("SANDBOX_LISTEN"); v != "" {
					sc.Listen = v
				}
			}
			if !cmd.Flags().Changed("token") {
				sc.Token = os.Getenv("SANDBOX_TOKEN")
			}
			logger := c.logger()
			srv := app.NewSandboxServer(sc, logger)

			errc := make(chan error, 1)
			go func() { errc <- srv.Start() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			logger.Println("Shutting down sandbox server...")
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&sc.Listen, "listen", config.DefaultSandboxListen, "listen address")
	fl.StringVar(&sc.Token, "token", "", "shared bearer token required from clients")
	fl.StringVar(&sc.WorkRoot, "work-root", "", "parent directory of job directories (default the system temp dir)")
	fl.BoolVar(&sc.Keep, "keep", false, "keep job directories after the run")
	return cmd
}
