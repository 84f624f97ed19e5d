package afpacket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecomputeSize(t *testing.T) {
	tests := []struct {
		name     string
		bufferMB int
		snapLen  int
		pageSize int
	}{
		{"full frames", 8, 65535, 4096},
		{"small snaplen", 8, 128, 4096},
		{"ethernet mtu", 64, 1514, 4096},
		{"large pages", 32, 9000, 16384},
		{"tiny budget", 1, 65535, 4096},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frameSize, blockSize, numBlocks, err := recomputeSize(tt.bufferMB, tt.snapLen, tt.pageSize)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, frameSize, tt.snapLen+tpacketHdrLen)
			assert.Zero(t, frameSize%tpacketAlignment, "frame size must be aligned")
			assert.Zero(t, blockSize%tt.pageSize, "block size must be page aligned")
			assert.Zero(t, blockSize%frameSize, "block size must hold whole frames")
			assert.GreaterOrEqual(t, numBlocks, 1)
		})
	}
}

func TestRecomputeSizeInvalid(t *testing.T) {
	tests := []struct {
		name     string
		bufferMB int
		snapLen  int
		pageSize int
	}{
		{"zero buffer", 0, 65535, 4096},
		{"zero snaplen", 8, 0, 4096},
		{"unaligned page", 8, 65535, 4100},
		{"negative page", 8, 65535, -4096},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := recomputeSize(tt.bufferMB, tt.snapLen, tt.pageSize)
			assert.Error(t, err)
		})
	}
}

func TestLCM(t *testing.T) {
	assert.Equal(t, 12, lcm(4, 6))
	assert.Equal(t, 4096, lcm(4096, 16))
	assert.Equal(t, 0, lcm(0, 16))
}
