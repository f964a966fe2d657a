package cifar10

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// writeBatchDir writes a miniature CIFAR-10 binary layout under baseDir:
// the six standard batch files, each with perFile records. Record payloads
// are synthesized so tests can identify examples: for global example g,
// label = g%10, the R plane is all 255, the G plane all 0, and the B plane
// all byte(g).
func writeBatchDir(t *testing.T, baseDir string, perFile int) {
	t.Helper()
	dir := filepath.Join(baseDir, LocalBinDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create batch dir: %v", err)
	}

	names := append(append([]string{}, TrainBatchFiles...), TestBatchFile)
	const plane = Width * Height
	for fileIdx, name := range names {
		buf := make([]byte, perFile*recordBytes)
		for rec := 0; rec < perFile; rec++ {
			g := fileIdx*perFile + rec
			record := buf[rec*recordBytes : (rec+1)*recordBytes]
			record[0] = byte(g % 10)
			for px := 0; px < plane; px++ {
				record[1+px] = 255             // R
				record[1+plane+px] = 0         // G
				record[1+2*plane+px] = byte(g) // B
			}
		}
		if err := os.WriteFile(filepath.Join(dir, name), buf, 0644); err != nil {
			t.Fatalf("failed to write batch file %s: %v", name, err)
		}
	}
}

func TestLoadPool_DecodesAndNormalizes(t *testing.T) {
	tmp := t.TempDir()
	writeBatchDir(t, tmp, 2)

	pool, err := LoadPool(tmp, false)
	if err != nil {
		t.Fatalf("LoadPool failed: %v", err)
	}

	// 6 files x 2 records.
	if got := pool.Len(); got != 12 {
		t.Fatalf("expected pool of 12 examples, got %d", got)
	}

	// Labels follow the global example index.
	for g := 0; g < pool.Len(); g++ {
		if want := int32(g % 10); pool.Label(g) != want {
			t.Fatalf("label mismatch at %d: got %d want %d", g, pool.Label(g), want)
		}
	}

	// Planes must be interleaved into HWC order, normalized to [-1, 1]:
	// R byte 255 -> 1, G byte 0 -> -1, B byte g -> (g/255-0.5)/0.5.
	const eps = 1e-6
	for _, g := range []int{0, 5, 11} {
		img := pool.Image(g)
		if len(img) != imageFloats {
			t.Fatalf("image %d has %d floats, want %d", g, len(img), imageFloats)
		}
		wantB := (float32(byte(g))/255 - 0.5) / 0.5
		if math.Abs(float64(img[0]-1)) > eps {
			t.Fatalf("image %d R channel: got %v want 1", g, img[0])
		}
		if math.Abs(float64(img[1]+1)) > eps {
			t.Fatalf("image %d G channel: got %v want -1", g, img[1])
		}
		if math.Abs(float64(img[2]-wantB)) > eps {
			t.Fatalf("image %d B channel: got %v want %v", g, img[2], wantB)
		}
		// Same pixel values at the last pixel of the image.
		last := imageFloats - Depth
		if img[last] != img[0] || img[last+1] != img[1] || img[last+2] != img[2] {
			t.Fatalf("image %d last pixel differs from first: %v vs %v", g, img[last:last+3], img[:3])
		}
	}
}

func TestLoadPool_RejectsTruncatedFile(t *testing.T) {
	tmp := t.TempDir()
	writeBatchDir(t, tmp, 2)

	// Truncate one file mid-record.
	bad := filepath.Join(tmp, LocalBinDir, TrainBatchFiles[3])
	if err := os.Truncate(bad, recordBytes+100); err != nil {
		t.Fatalf("failed to truncate: %v", err)
	}

	if _, err := LoadPool(tmp, false); err == nil {
		t.Fatalf("expected error for truncated batch file, got nil")
	}
}

func TestLoadPool_RejectsOutOfRangeLabel(t *testing.T) {
	tmp := t.TempDir()
	writeBatchDir(t, tmp, 1)

	bad := filepath.Join(tmp, LocalBinDir, TestBatchFile)
	buf, err := os.ReadFile(bad)
	if err != nil {
		t.Fatalf("failed to read batch file: %v", err)
	}
	buf[0] = 10 // labels are 0..9
	if err := os.WriteFile(bad, buf, 0644); err != nil {
		t.Fatalf("failed to rewrite batch file: %v", err)
	}

	if _, err := LoadPool(tmp, false); err == nil {
		t.Fatalf("expected error for out-of-range label, got nil")
	}
}

func TestVerifyBatchFiles(t *testing.T) {
	tmp := t.TempDir()
	writeBatchDir(t, tmp, 3)

	if err := VerifyBatchFiles(tmp); err != nil {
		t.Fatalf("VerifyBatchFiles on complete layout failed: %v", err)
	}

	// A missing file must fail verification.
	if err := os.Remove(filepath.Join(tmp, LocalBinDir, TestBatchFile)); err != nil {
		t.Fatalf("failed to remove batch file: %v", err)
	}
	if err := VerifyBatchFiles(tmp); err == nil {
		t.Fatalf("expected error for missing batch file, got nil")
	}
}
