package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leandrodaf/keysync/internal/midi/midifake"
	"github.com/leandrodaf/keysync/internal/transport/loopback"
	"github.com/leandrodaf/keysync/sdk/contracts"
	"github.com/leandrodaf/keysync/sdk/keysync"
	"github.com/leandrodaf/keysync/sdk/midi"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var demoScale = []byte{48, 50, 52, 53, 55, 57, 59, 60, 59, 57, 55, 53, 52, 50}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a leader with a simulated keyboard and a follower in one process.",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		tui, _ := cmd.Flags().GetBool("tui")
		step, _ := cmd.Flags().GetDuration("step")
		if step <= 0 {
			return fmt.Errorf("--step must be positive, got %s", step)
		}

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
		if _, err := midi.ApplyDefaultOptions(opts...); err != nil {
			return err
		}

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		network := loopback.NewNetwork()

		leaderAccess := midifake.New()
		keys := leaderAccess.AddInput("demo-keys", "Demo Keys", "keysync")
		leader, err := keysync.NewParticipant(leaderAccess, network.Join("leader"), &logProxy{log: log}, opts...)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, leader.Close()) }()

		anim, _ := animationOf(opts)
		v := newView(tui, anim, log)
		follower, err := keysync.NewParticipant(midifake.New(), network.Join("follower"), v.proxy, opts...)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, follower.Close()) }()

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		leaderErr := make(chan error, 1)
		go func() { leaderErr <- leader.Run(ctx) }()
		go play(ctx, keys, step)

		runErr := v.run(ctx, follower)
		cancel()
		return errors.Join(runErr, ignoreCancel(<-leaderErr))
	},
}

// play loops demoScale on port, holding each note for half a step.
func play(ctx context.Context, port *midifake.Port, step time.Duration) {
	ticker := time.NewTicker(step / 2)
	defer ticker.Stop()
	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		note := demoScale[(i/2)%len(demoScale)]
		if i%2 == 0 {
			port.Emit(contracts.StatusNoteOn, note, 100)
		} else {
			port.Emit(contracts.StatusNoteOff, note, 0)
		}
	}
}

func init() {
	demoCmd.Flags().Bool("tui", true, "Draw the follower's key in the terminal")
	demoCmd.Flags().Duration("step", 400*time.Millisecond, "Time between notes")
	rootCmd.AddCommand(demoCmd)
}
