// Package file replays a pcap savefile as a capture source.
package file

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"firestige.xyz/ifmon/internal/source"
)

// Name is the engine name used in configuration.
const Name = "file"

func init() {
	source.Register(Name, func(opts source.Options) (source.Source, error) {
		return NewSource(opts)
	})
}

// Source reads frames from an offline pcap handle. Reaching the end of the
// file is reported as an error wrapping io.EOF, which ends the session.
type Source struct {
	path     string
	handle   *pcap.Handle
	received uint64
}

// NewSource opens the savefile named by opts.FilePath.
func NewSource(opts source.Options) (*Source, error) {
	if opts.FilePath == "" {
		return nil, fmt.Errorf("%w: file_path is required", source.ErrOpen)
	}

	handle, err := pcap.OpenOffline(opts.FilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: pcap file %s: %v", source.ErrOpen, opts.FilePath, err)
	}

	if opts.Filter != "" {
		if err := handle.SetBPFFilter(opts.Filter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("%w: %q: %v", source.ErrFilter, opts.Filter, err)
		}
	}

	return &Source{path: opts.FilePath, handle: handle}, nil
}

// ReadPacketData implements source.Source.
func (s *Source) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := s.handle.ReadPacketData()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ci, fmt.Errorf("end of capture file %s: %w", s.path, io.EOF)
		}
		return nil, ci, fmt.Errorf("failed to read packet: %w", err)
	}
	s.received++
	return data, ci, nil
}

// Stats implements source.Source. Only the read count is known offline.
func (s *Source) Stats() (source.Stats, error) {
	return source.Stats{PacketsReceived: s.received}, nil
}

// Close implements source.Source.
func (s *Source) Close() {
	if s.handle != nil {
		s.handle.Close()
		s.handle = nil
	}
}
