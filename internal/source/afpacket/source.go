// Package afpacket implements a live capture source on a TPACKET_V3 ring.
package afpacket

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"golang.org/x/net/bpf"

	"firestige.xyz/ifmon/internal/source"
)

// Name is the engine name used in configuration.
const Name = "afpacket"

func init() {
	source.Register(Name, func(opts source.Options) (source.Source, error) {
		return NewSource(opts)
	})
}

// Source reads frames from an AF_PACKET mmap ring.
type Source struct {
	handle *afpacket.TPacket
	iface  string
}

// NewSource sizes the ring from the buffer budget, opens it and attaches
// the compiled filter.
//
// AF_PACKET sockets receive every frame the kernel hands to the interface;
// the promiscuous and immediate options have no equivalent here.
func NewSource(opts source.Options) (*Source, error) {
	if _, err := source.FindDevice(opts.Interface); err != nil {
		return nil, err
	}

	frameSize, blockSize, numBlocks, err := recomputeSize(opts.BufferSizeMB, opts.SnapLen, os.Getpagesize())
	if err != nil {
		return nil, fmt.Errorf("%w: interface %q: %v", source.ErrOpen, opts.Interface, err)
	}

	tp, err := afpacket.NewTPacket(
		afpacket.OptInterface(opts.Interface),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(numBlocks),
		afpacket.OptPollTimeout(opts.Timeout),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: interface %q: %v", source.ErrOpen, opts.Interface, err)
	}

	if opts.Filter != "" {
		if err := applyBPFFilter(tp, opts.SnapLen, opts.Filter); err != nil {
			tp.Close()
			return nil, fmt.Errorf("%w: interface %q: %v", source.ErrFilter, opts.Interface, err)
		}
	}

	slog.Debug("afpacket ring opened",
		"interface", opts.Interface,
		"frame_size", frameSize,
		"block_size", blockSize,
		"num_blocks", numBlocks,
		"timeout", opts.Timeout)

	return &Source{handle: tp, iface: opts.Interface}, nil
}

// applyBPFFilter compiles the expression with libpcap and attaches the
// resulting program to the socket.
func applyBPFFilter(tp *afpacket.TPacket, snapLen int, filter string) error {
	pcapInsns, err := pcap.CompileBPFFilter(layers.LinkTypeEthernet, snapLen, filter)
	if err != nil {
		return fmt.Errorf("compile %q: %w", filter, err)
	}

	// pcap.BPFInstruction and bpf.RawInstruction share layout: Code->Op, Jt, Jf, K.
	rawInsns := make([]bpf.RawInstruction, len(pcapInsns))
	for i, insn := range pcapInsns {
		rawInsns[i] = bpf.RawInstruction{
			Op: insn.Code,
			Jt: insn.Jt,
			Jf: insn.Jf,
			K:  insn.K,
		}
	}

	if err := tp.SetBPF(rawInsns); err != nil {
		return fmt.Errorf("attach %q: %w", filter, err)
	}
	return nil
}

// ReadPacketData implements source.Source. The returned data is a copy and
// stays valid after the next read.
func (s *Source) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := s.handle.ReadPacketData()
	if err != nil {
		if errors.Is(err, afpacket.ErrTimeout) {
			return nil, ci, source.ErrTimeout
		}
		return nil, ci, fmt.Errorf("read from %q: %w", s.iface, err)
	}
	return data, ci, nil
}

// Stats implements source.Source.
func (s *Source) Stats() (source.Stats, error) {
	_, v3, err := s.handle.SocketStats()
	if err != nil {
		return source.Stats{}, err
	}
	return source.Stats{
		PacketsReceived: uint64(v3.Packets()),
		PacketsDropped:  uint64(v3.Drops()),
	}, nil
}

// Close unmaps the ring. The read loop must have returned before Close is
// called, otherwise a concurrent read touches unmapped memory.
func (s *Source) Close() {
	s.handle.Close()
}
