package afpacket

import (
	"fmt"
)

const (
	tpacketAlignment = 16      // TPACKET_ALIGNMENT
	tpacketHdrLen    = 52      // approximate TPACKET3_HDRLEN
	maxBlockSize     = 4 << 20 // 4 MB
)

// recomputeSize derives TPACKET ring geometry from a memory budget.
//
// The kernel requires frameSize to be a multiple of TPACKET_ALIGNMENT,
// blockSize to be a multiple of the page size and of frameSize, and the ring
// to fit blockSize*numBlocks. The result approximates bufferSizeMB but always
// has at least one block.
func recomputeSize(bufferSizeMB, snapLen, pageSize int) (frameSize, blockSize, numBlocks int, err error) {
	if bufferSizeMB <= 0 {
		return 0, 0, 0, fmt.Errorf("bufferSizeMB must be positive, got %d", bufferSizeMB)
	}
	if snapLen <= 0 {
		return 0, 0, 0, fmt.Errorf("snapLen must be positive, got %d", snapLen)
	}
	if pageSize <= 0 || pageSize%tpacketAlignment != 0 {
		return 0, 0, 0, fmt.Errorf("pageSize must be positive and multiple of %d, got %d", tpacketAlignment, pageSize)
	}

	frameSize = alignUp(tpacketHdrLen+snapLen, tpacketAlignment)

	blockSize = lcm(pageSize, frameSize)
	if blockSize > maxBlockSize {
		// Page aligned frames keep every multiple of frameSize page aligned.
		frameSize = alignUp(frameSize, pageSize)
		blockSize = frameSize
	}
	if perBlock := maxBlockSize / blockSize; perBlock > 1 {
		blockSize *= perBlock
	}

	numBlocks = (bufferSizeMB << 20) / blockSize
	if numBlocks < 1 {
		numBlocks = 1
	}

	return frameSize, blockSize, numBlocks, nil
}

func alignUp(n, to int) int {
	return ((n + to - 1) / to) * to
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return (a / gcd(a, b)) * b
}
