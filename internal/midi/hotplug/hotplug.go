// Package hotplug detects MIDI port changes on platforms without change notifications.
package hotplug

import (
	"context"
	"slices"
	"time"

	"github.com/leandrodaf/keysync/sdk/contracts"
)

// ListFunc returns the identifiers of the ports currently present.
type ListFunc func() ([]string, error)

// Watch polls list every interval and signals on the returned channel whenever the set of ports
// differs from the previous poll. Signals coalesce when the consumer is slow. The channel is
// closed when ctx is done.
func Watch(ctx context.Context, interval time.Duration, list ListFunc, logger contracts.Logger) <-chan struct{} {
	changes := make(chan struct{}, 1)

	go func() {
		defer close(changes)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		previous, err := snapshot(list)
		if err != nil {
			logger.Warn("Failed to poll MIDI ports", logger.Field().Error("error", err))
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			current, err := snapshot(list)
			if err != nil {
				logger.Warn("Failed to poll MIDI ports", logger.Field().Error("error", err))
				continue
			}
			if slices.Equal(previous, current) {
				continue
			}
			previous = current
			logger.Debug("MIDI ports changed", logger.Field().Strings("ports", current))

			select {
			case changes <- struct{}{}:
			default:
			}
		}
	}()

	return changes
}

func snapshot(list ListFunc) ([]string, error) {
	ports, err := list()
	if err != nil {
		return nil, err
	}
	ports = slices.Clone(ports)
	slices.Sort(ports)
	return ports, nil
}
