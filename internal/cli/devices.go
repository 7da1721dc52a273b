package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/leandrodaf/keysync/sdk/contracts"
	"github.com/leandrodaf/keysync/sdk/midi"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var styleHeading = lipgloss.NewStyle().Bold(true)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the MIDI inputs and outputs visible to this machine.",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log, err := newLogger(cmd, cfg, false)
		if err != nil {
			return err
		}
		opts, err := cfg.Options()
		if err != nil {
			return err
		}

		access, err := midi.NewAccess(append(opts, contracts.WithLogger(log))...)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, access.Close()) }()

		if err := access.RequestAccess(cmd.Context()); err != nil {
			return fmt.Errorf("MIDI access: %w", err)
		}
		inputs, err := access.Inputs()
		if err != nil {
			return err
		}
		outputs, err := access.Outputs()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, styleHeading.Render(fmt.Sprintf("Inputs (%d)", len(inputs))))
		for _, in := range inputs {
			fmt.Fprintln(out, "  "+formatDevice(in.Info()))
		}
		fmt.Fprintln(out, styleHeading.Render(fmt.Sprintf("Outputs (%d)", len(outputs))))
		for _, d := range outputs {
			fmt.Fprintln(out, "  "+formatDevice(d))
		}
		return nil
	},
}

func formatDevice(d contracts.DeviceInfo) string {
	manufacturer := d.Manufacturer
	if manufacturer == "" {
		manufacturer = "unknown"
	}
	return fmt.Sprintf("%s (%s) - %s  [%s]", d.Name, manufacturer, d.State, d.ID)
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
