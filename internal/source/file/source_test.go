package file

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/ifmon/internal/source"
)

// writeSavefile writes n frames of size bytes each.
func writeSavefile(t *testing.T, n, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeEthernet))

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		data := make([]byte, size)
		ci := gopacket.CaptureInfo{
			Timestamp:     ts.Add(time.Duration(i) * time.Millisecond),
			CaptureLength: size,
			Length:        size,
		}
		require.NoError(t, w.WritePacket(ci, data))
	}
	return path
}

func TestReplay(t *testing.T) {
	path := writeSavefile(t, 3, 64)

	src, err := source.Open(Name, source.Options{FilePath: path})
	require.NoError(t, err)
	defer src.Close()

	for i := 0; i < 3; i++ {
		data, ci, err := src.ReadPacketData()
		require.NoError(t, err)
		assert.Len(t, data, 64)
		assert.Equal(t, 64, ci.CaptureLength)
	}

	_, _, err = src.ReadPacketData()
	require.Error(t, err)
	assert.ErrorIs(t, err, io.EOF)
	assert.NotErrorIs(t, err, source.ErrTimeout)

	st, err := src.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), st.PacketsReceived)
}

func TestMissingPath(t *testing.T) {
	_, err := NewSource(source.Options{})
	assert.ErrorIs(t, err, source.ErrOpen)
}

func TestMissingFile(t *testing.T) {
	_, err := NewSource(source.Options{FilePath: filepath.Join(t.TempDir(), "nope.pcap")})
	assert.ErrorIs(t, err, source.ErrOpen)
}

func TestInvalidFilter(t *testing.T) {
	path := writeSavefile(t, 1, 64)
	_, err := NewSource(source.Options{FilePath: path, Filter: "not a valid ((filter"})
	assert.ErrorIs(t, err, source.ErrFilter)
}
