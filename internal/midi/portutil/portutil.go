// Package portutil holds helpers shared by the device-access backends.
package portutil

import (
	"fmt"
	"time"
)

var epoch = time.Now()

// Now returns a monotonic nanosecond timestamp for a received frame.
func Now() uint64 {
	return uint64(time.Since(epoch))
}

// UniqueIDs derives port ids from port names, suffixing repeated names with their occurrence
// ("Keys", "Keys #2") so that identical devices stay distinguishable.
func UniqueIDs(names []string) []string {
	seen := make(map[string]int, len(names))
	ids := make([]string, len(names))
	for i, name := range names {
		seen[name]++
		if n := seen[name]; n > 1 {
			ids[i] = fmt.Sprintf("%s #%d", name, n)
			continue
		}
		ids[i] = name
	}
	return ids
}

// SplitFrames cuts a packet carrying several three-byte channel messages into frames.
// Packets that are not a multiple of three bytes are returned whole.
func SplitFrames(data []byte) [][]byte {
	if len(data) <= 3 || len(data)%3 != 0 {
		return [][]byte{append([]byte(nil), data...)}
	}
	frames := make([][]byte, 0, len(data)/3)
	for i := 0; i < len(data); i += 3 {
		frames = append(frames, append([]byte(nil), data[i:i+3]...))
	}
	return frames
}
