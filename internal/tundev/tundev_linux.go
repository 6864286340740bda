//go:build linux

package tundev

import (
	"fmt"

	"github.com/songgao/water"
)

// linuxTUN implements Device using songgao/water on Linux.
type linuxTUN struct {
	iface *water.Interface
	name  string
}

// New creates a TUN device. If name is empty, the OS assigns one.
func New(name string) (Device, error) {
	config := water.Config{DeviceType: water.TUN}
	if name != "" {
		config.Name = name
	}
	iface, err := water.New(config)
	if err != nil {
		return nil, fmt.Errorf("tundev: create TUN device: %w", err)
	}
	return &linuxTUN{iface: iface, name: iface.Name()}, nil
}

func (d *linuxTUN) Name() string { return d.name }

func (d *linuxTUN) Read(buf []byte) (int, error) { return d.iface.Read(buf) }

func (d *linuxTUN) Write(buf []byte) (int, error) { return d.iface.Write(buf) }

func (d *linuxTUN) SetMTU(mtu int) error {
	return runIPLink("set", "dev", d.name, "mtu", fmt.Sprintf("%d", mtu))
}

func (d *linuxTUN) Close() error {
	_ = runIPLink("delete", d.name)
	return d.iface.Close()
}
