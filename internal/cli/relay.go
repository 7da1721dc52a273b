package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/leandrodaf/keysync/internal/transport/wsrelay"
	"github.com/spf13/cobra"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the WebSocket relay participants connect to.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("listen") {
			cfg.Relay.Listen, _ = cmd.Flags().GetString("listen")
		}
		log, err := newLogger(cmd, cfg, false)
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		relay := wsrelay.NewRelay(log)
		srv := &http.Server{
			Addr:              cfg.Relay.Listen,
			Handler:           relay.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()
		log.Info("Relay listening", log.Field().String("addr", cfg.Relay.Listen))

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		log.Info("Relay stopped")
		return nil
	},
}

func init() {
	relayCmd.Flags().String("listen", ":8080", "Address the relay listens on")
	rootCmd.AddCommand(relayCmd)
}
