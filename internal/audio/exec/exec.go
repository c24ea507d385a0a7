// Package exec implements audio.Router by shelling out to pactl
// (PulseAudio/PipeWire-pulse), matching how the wider example corpus
// drives an external OS-level helper binary with os/exec rather than
// linking an audio library directly.
package exec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/phonebt/phonebt/internal/audio"
)

// Router shells out to pactl to move the default sink to a paired
// Bluetooth device and back. It is advisory only: every method may
// fail, and callers are expected to treat failure as best-effort.
type Router struct {
	// Binary is the pactl executable name or path. Defaults to "pactl".
	Binary string
	// previousSink remembers the default sink RouteToBluetoothDevice
	// last replaced, so RestorePreviousRouting can put it back.
	previousSink string
}

// New returns a Router driving the system's pactl binary.
func New() *Router {
	return &Router{Binary: "pactl"}
}

func (r *Router) bin() string {
	if r.Binary == "" {
		return "pactl"
	}
	return r.Binary
}

func (r *Router) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.bin(), args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s: %w: %s", r.bin(), strings.Join(args, " "), err, out.String())
	}
	return out.String(), nil
}

// RouteToBluetoothDevice sets the default sink to the first
// bluez_output.* sink pactl reports. It returns false, nil when no
// Bluetooth sink is present (there is nothing to route to, not an
// error).
func (r *Router) RouteToBluetoothDevice(ctx context.Context) (bool, error) {
	out, err := r.run(ctx, "list", "short", "sinks")
	if err != nil {
		return false, err
	}

	sink := firstBluetoothSink(out)
	if sink == "" {
		return false, nil
	}

	current, err := r.run(ctx, "get-default-sink")
	if err != nil {
		return false, err
	}
	r.previousSink = strings.TrimSpace(current)

	if _, err := r.run(ctx, "set-default-sink", sink); err != nil {
		return false, err
	}
	return true, nil
}

// RestorePreviousRouting sets the default sink back to whatever it was
// before the last successful RouteToBluetoothDevice. A no-op if no
// prior routing was recorded.
func (r *Router) RestorePreviousRouting(ctx context.Context) error {
	if r.previousSink == "" {
		return nil
	}
	_, err := r.run(ctx, "set-default-sink", r.previousSink)
	return err
}

// ListBluetoothDevices lists every sink pactl reports, flagging the
// Bluetooth ones.
func (r *Router) ListBluetoothDevices(ctx context.Context) ([]audio.DeviceInfo, error) {
	out, err := r.run(ctx, "list", "short", "sinks")
	if err != nil {
		return nil, err
	}

	var devices []audio.DeviceInfo
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		devices = append(devices, audio.DeviceInfo{
			ID:          fields[1],
			Description: line,
			IsBluetooth: strings.HasPrefix(fields[1], "bluez_"),
		})
	}
	return devices, nil
}

func firstBluetoothSink(listShortOutput string) string {
	for _, line := range strings.Split(listShortOutput, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if strings.HasPrefix(fields[1], "bluez_") {
			return fields[1]
		}
	}
	return ""
}

var _ audio.Router = (*Router)(nil)
