//go:build !linux

package source

func enrichLink(d *Device) {}
