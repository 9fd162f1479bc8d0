package fingerprint_test

import (
	"context"
	"testing"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/fingerprint"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/services"
)

func gradientFrame(ascending bool) []byte {
	frame := make([]byte, fingerprint.FrameBytes)
	for row := 0; row < 8; row++ {
		for col := 0; col < 9; col++ {
			value := byte(col * 28)
			if !ascending {
				value = byte((8 - col) * 28)
			}
			frame[row*9+col] = value
		}
	}
	return frame
}

func TestDHashIsDeterministic(t *testing.T) {
	frame := gradientFrame(true)
	first, err := fingerprint.DHash(frame)
	if err != nil {
		t.Fatalf("DHash failed: %v", err)
	}
	second, err := fingerprint.DHash(frame)
	if err != nil {
		t.Fatalf("DHash failed: %v", err)
	}
	if first != second {
		t.Fatalf("same frame produced %016x and %016x", first, second)
	}
}

func TestDHashGradientExtremes(t *testing.T) {
	ascending, err := fingerprint.DHash(gradientFrame(true))
	if err != nil {
		t.Fatalf("DHash failed: %v", err)
	}
	if ascending != 0 {
		t.Fatalf("ascending gradient should set no bits, got %016x", ascending)
	}

	descending, err := fingerprint.DHash(gradientFrame(false))
	if err != nil {
		t.Fatalf("DHash failed: %v", err)
	}
	if descending != ^uint64(0) {
		t.Fatalf("descending gradient should set all bits, got %016x", descending)
	}

	if distance := fingerprint.Distance(ascending, descending); distance != 64 {
		t.Fatalf("expected maximum distance 64, got %d", distance)
	}
}

func TestDHashRejectsWrongSize(t *testing.T) {
	if _, err := fingerprint.DHash(make([]byte, 10)); err == nil {
		t.Fatal("expected error for undersized frame")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	hash := uint64(0xdeadbeefcafef00d)
	encoded := fingerprint.Encode(hash)
	if len(encoded) != 16 {
		t.Fatalf("expected fixed-width encoding, got %q", encoded)
	}
	decoded, err := fingerprint.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded != hash {
		t.Fatalf("round trip mismatch: %016x != %016x", decoded, hash)
	}
}

func TestComputeHashesExtractedFrame(t *testing.T) {
	frame := gradientFrame(false)
	restore := fingerprint.SetRunner(func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		return frame, nil
	})
	defer restore()

	fp := fingerprint.New("ffmpeg", 0.25)
	hash, err := fp.Compute(context.Background(), "/tmp/video.mp4", 60)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	want, err := fingerprint.DHash(frame)
	if err != nil {
		t.Fatalf("DHash failed: %v", err)
	}
	if hash != want {
		t.Fatalf("Compute returned %016x, want %016x", hash, want)
	}
}

func TestComputeShortReadIsFingerprintError(t *testing.T) {
	restore := fingerprint.SetRunner(func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		return []byte{1, 2, 3}, nil
	})
	defer restore()

	fp := fingerprint.New("ffmpeg", 0.25)
	_, err := fp.Compute(context.Background(), "/tmp/video.mp4", 60)
	if err == nil {
		t.Fatal("expected error for short frame read")
	}
	if services.Kind(err) != "fingerprint" {
		t.Fatalf("expected fingerprint kind, got %q", services.Kind(err))
	}
}

func TestComputeRejectsZeroDuration(t *testing.T) {
	fp := fingerprint.New("ffmpeg", 0.25)
	if _, err := fp.Compute(context.Background(), "/tmp/video.mp4", 0); err == nil {
		t.Fatal("expected error for zero duration")
	}
}
