package source

import (
	"fmt"

	"github.com/google/gopacket/pcap"
)

// Device describes one capture device.
type Device struct {
	Name        string
	Addresses   []string
	Description string
	MTU         int
	State       string
}

// Address returns the last address of the device, or "N/A".
func (d Device) Address() string {
	if len(d.Addresses) == 0 {
		return "N/A"
	}
	return d.Addresses[len(d.Addresses)-1]
}

// Desc returns the device description, or a placeholder when empty.
func (d Device) Desc() string {
	if d.Description == "" {
		return "No description"
	}
	return d.Description
}

// listDevices is replaced in tests.
var listDevices = pcapDevices

// ListDevices enumerates capture devices known to libpcap, enriched with
// link state and MTU where the platform exposes them.
func ListDevices() ([]Device, error) {
	devs, err := listDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}
	for i := range devs {
		enrichLink(&devs[i])
	}
	return devs, nil
}

// FindDevice returns the device with the given name.
func FindDevice(name string) (Device, error) {
	devs, err := ListDevices()
	if err != nil {
		return Device{}, err
	}
	for _, d := range devs {
		if d.Name == name {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
}

func pcapDevices() ([]Device, error) {
	ifs, err := pcap.FindAllDevs()
	if err != nil {
		return nil, err
	}
	devs := make([]Device, 0, len(ifs))
	for _, ifc := range ifs {
		d := Device{
			Name:        ifc.Name,
			Description: ifc.Description,
		}
		for _, addr := range ifc.Addresses {
			d.Addresses = append(d.Addresses, addr.IP.String())
		}
		devs = append(devs, d)
	}
	return devs, nil
}
