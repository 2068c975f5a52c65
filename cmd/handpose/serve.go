package main

import (
	"github.com/ayusman/handpose/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr   string
	serveStatic string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recorded sessions over HTTP",
	Long: `Serve recorded sessions over HTTP.

Live endpoints (/api/stream, /api/observations) are only available from
"handpose run --serve".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		srv := server.New(server.Config{StaticDir: serveStatic, Store: st, Logger: zlog})
		return srv.Run(cmd.Context(), cfg.Server.Addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (overrides server.addr)")
	serveCmd.Flags().StringVar(&serveStatic, "static", "", "directory of static files to serve at /")

	rootCmd.AddCommand(serveCmd)
}
