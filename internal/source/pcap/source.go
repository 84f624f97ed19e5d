// Package pcap implements a live capture source on libpcap.
package pcap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"firestige.xyz/ifmon/internal/source"
)

// Name is the engine name used in configuration.
const Name = "pcap"

func init() {
	source.Register(Name, func(opts source.Options) (source.Source, error) {
		return NewSource(opts)
	})
}

// Source reads frames from a libpcap handle.
type Source struct {
	handle *pcap.Handle
	iface  string
}

// NewSource looks up the interface, activates a handle and applies the filter.
func NewSource(opts source.Options) (*Source, error) {
	if _, err := source.FindDevice(opts.Interface); err != nil {
		return nil, err
	}

	inactive, err := pcap.NewInactiveHandle(opts.Interface)
	if err != nil {
		return nil, fmt.Errorf("%w: interface %q: %v", source.ErrOpen, opts.Interface, err)
	}
	defer inactive.CleanUp()

	if err := configure(inactive, opts); err != nil {
		return nil, fmt.Errorf("%w: interface %q: %v", source.ErrOpen, opts.Interface, err)
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("%w: interface %q: %v", source.ErrOpen, opts.Interface, err)
	}

	if opts.Filter != "" {
		if err := handle.SetBPFFilter(opts.Filter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("%w: interface %q: %q: %v", source.ErrFilter, opts.Interface, opts.Filter, err)
		}
	}

	slog.Debug("pcap handle activated",
		"interface", opts.Interface,
		"snap_len", opts.SnapLen,
		"promiscuous", opts.Promiscuous,
		"immediate", opts.ImmediateMode,
		"timeout", opts.Timeout,
		"link_type", handle.LinkType())

	return &Source{handle: handle, iface: opts.Interface}, nil
}

func configure(h *pcap.InactiveHandle, opts source.Options) error {
	if opts.SnapLen > 0 {
		if err := h.SetSnapLen(opts.SnapLen); err != nil {
			return fmt.Errorf("set snaplen: %w", err)
		}
	}
	if err := h.SetPromisc(opts.Promiscuous); err != nil {
		return fmt.Errorf("set promiscuous: %w", err)
	}
	if err := h.SetImmediateMode(opts.ImmediateMode); err != nil {
		return fmt.Errorf("set immediate mode: %w", err)
	}
	if opts.Timeout > 0 {
		if err := h.SetTimeout(opts.Timeout); err != nil {
			return fmt.Errorf("set timeout: %w", err)
		}
	}
	if opts.BufferSizeMB > 0 {
		if err := h.SetBufferSize(opts.BufferSizeMB * 1024 * 1024); err != nil {
			return fmt.Errorf("set buffer size: %w", err)
		}
	}
	return nil
}

// ReadPacketData implements source.Source.
func (s *Source) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := s.handle.ReadPacketData()
	if err != nil {
		if errors.Is(err, pcap.NextErrorTimeoutExpired) {
			return nil, ci, source.ErrTimeout
		}
		return nil, ci, fmt.Errorf("read from %q: %w", s.iface, err)
	}
	return data, ci, nil
}

// Stats implements source.Source.
func (s *Source) Stats() (source.Stats, error) {
	st, err := s.handle.Stats()
	if err != nil {
		return source.Stats{}, err
	}
	return source.Stats{
		PacketsReceived:  uint64(st.PacketsReceived),
		PacketsDropped:   uint64(st.PacketsDropped),
		PacketsIfDropped: uint64(st.PacketsIfDropped),
	}, nil
}

// Close releases the handle. It must not race with ReadPacketData.
func (s *Source) Close() {
	s.handle.Close()
}
