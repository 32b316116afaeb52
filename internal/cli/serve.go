package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toddgeist/ralph-wiggum-cursor/internal/api"
	"github.com/toddgeist/ralph-wiggum-cursor/internal/logger"
)

var serveHost string
var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only status API",
	Long: `Starts an HTTP server exposing the workspace's session state:
/status, /budget, /failures, /guardrails, plus /health and /version.
The API is read-only; state is still owned by the hook invocations.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "bind host (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "bind port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	d, err := openWorkspace("")
	if err != nil {
		return err
	}
	if serveHost != "" {
		d.cfg.API.Host = serveHost
	}
	if servePort != 0 {
		d.cfg.API.Port = servePort
	}

	log := logger.SetupLogger(d.cfg, d.root, true)
	defer logger.Stop()

	api.SetVersion(Version)
	server := api.NewServer(d.cfg, d.root, d.store, d.tracker, d.detector, d.guardrails)

	fmt.Printf("Serving status API on http://%s\n", d.cfg.Address())
	log.Info().Str("address", d.cfg.Address()).Msg("status API listening")
	return server.ListenAndServe()
}
