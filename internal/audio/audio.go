// Package audio defines the host-side audio routing capability the
// Controller Adapter drives after a call connects its SCO link: moving
// the system's default audio sink to the paired Bluetooth device and
// back. All operations are advisory and best-effort by contract.
package audio

import "context"

// DeviceInfo describes one audio sink or source the router can see.
type DeviceInfo struct {
	ID          string
	Description string
	IsBluetooth bool
}

// Router is implemented by a platform audio backend. Every method may
// fail harmlessly; callers are expected to treat failures as
// best-effort and continue.
type Router interface {
	// RouteToBluetoothDevice moves the system default sink to the paired
	// device's audio endpoint. The returned bool reports whether routing
	// actually changed anything.
	RouteToBluetoothDevice(ctx context.Context) (bool, error)
	// RestorePreviousRouting undoes the last RouteToBluetoothDevice.
	RestorePreviousRouting(ctx context.Context) error
	ListBluetoothDevices(ctx context.Context) ([]DeviceInfo, error)
}
