// Package fingerprint computes perceptual hashes of video content for
// duplicate detection. A single representative frame is reduced to a 64-bit
// difference hash; re-encoded or resized copies of the same footage land
// within a small Hamming distance of each other.
package fingerprint

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

const (
	// hashWidth x hashHeight is the grayscale grid the frame is scaled to.
	// Each row of 9 pixels yields 8 horizontal comparisons, so the grid
	// produces exactly 64 bits.
	hashWidth  = 9
	hashHeight = 8

	// FrameBytes is the expected size of the raw grayscale input.
	FrameBytes = hashWidth * hashHeight
)

// DHash computes the 64-bit difference hash of a 9x8 grayscale frame laid
// out row-major, one byte per pixel. Bit i is set when the pixel is brighter
// than its right neighbor.
func DHash(pixels []byte) (uint64, error) {
	if len(pixels) != FrameBytes {
		return 0, fmt.Errorf("dhash: expected %d grayscale bytes, got %d", FrameBytes, len(pixels))
	}
	var hash uint64
	bit := 0
	for row := 0; row < hashHeight; row++ {
		offset := row * hashWidth
		for col := 0; col < hashWidth-1; col++ {
			if pixels[offset+col] > pixels[offset+col+1] {
				hash |= 1 << uint(bit)
			}
			bit++
		}
	}
	return hash, nil
}

// Distance returns the Hamming distance between two hashes.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Encode renders a hash as a fixed-width lowercase hex string.
func Encode(hash uint64) string {
	return fmt.Sprintf("%016x", hash)
}

// Decode parses a hex hash produced by Encode.
func Decode(value string) (uint64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("dhash: empty hash")
	}
	hash, err := strconv.ParseUint(value, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("dhash: parse %q: %w", value, err)
	}
	return hash, nil
}
