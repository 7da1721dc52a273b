package cli

import (
	"github.com/leandrodaf/keysync/internal/transport/wsrelay"
	"github.com/leandrodaf/keysync/sdk/contracts"
	"github.com/leandrodaf/keysync/sdk/keysync"
	"github.com/leandrodaf/keysync/sdk/midi"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join a session through a relay, leading it if a MIDI keyboard is attached.",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("relay") {
			cfg.Relay.URL, _ = cmd.Flags().GetString("relay")
		}
		tui, _ := cmd.Flags().GetBool("tui")

		log, err := newLogger(cmd, cfg, tui)
		if err != nil {
			return err
		}
		defer log.Sync()

		opts, err := cfg.Options()
		if err != nil {
			return err
		}
		opts = append(opts, contracts.WithLogger(log))

		access, err := midi.NewAccess(opts...)
		if err != nil {
			return err
		}

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		peer := wsrelay.NewPeer(cfg.Relay.URL, log)
		go peer.Run(ctx)

		anim, _ := animationOf(opts)
		v := newView(tui, anim, log)
		participant, err := keysync.NewParticipant(access, peer, v.proxy, opts...)
		if err != nil {
			return multierr.Append(err, access.Close())
		}
		defer func() { err = multierr.Append(err, participant.Close()) }()

		return v.run(ctx, participant)
	},
}

// animationOf extracts the animation settings carried by opts.
func animationOf(opts []contracts.Option) (contracts.AnimationConfig, bool) {
	var o contracts.ClientOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.Animation == nil {
		return contracts.DefaultAnimationConfig(), false
	}
	return *o.Animation, true
}

func init() {
	joinCmd.Flags().String("relay", "ws://127.0.0.1:8080/ws", "WebSocket URL of the relay")
	joinCmd.Flags().Bool("tui", false, "Draw the shared key in the terminal")
	rootCmd.AddCommand(joinCmd)
}
