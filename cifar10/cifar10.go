// Package cifar10 provides a data module for the CIFAR-10 image dataset:
// downloading and caching the binary distribution, loading it into memory
// with a fixed pixel normalization, re-splitting the combined train+test
// pool into train/validation/test subsets with a seeded deterministic
// shuffle, and exposing each subset as a gomlx train.Dataset batch source.
//
// The lifecycle mirrors the host orchestrator's data-module contract:
//
//	m, _ := cifar10.New(cifar10.Config{DataDir: "data"})
//	m.Prepare()        // download once, on one process
//	m.Setup("fit")     // load + split, on every process
//	ds, _ := m.TrainBatches()
//	// ... feed ds to a train.Loop ...
//	m.Teardown("fit")
package cifar10

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
)

const (
	// Width, Height and Depth of every CIFAR-10 image.
	Width  = 32
	Height = 32
	Depth  = 3

	// NumClasses in the dataset.
	NumClasses = 10

	// imageBytes is the raw pixel payload of one record: three 1024-byte
	// channel planes (R, then G, then B), row-major.
	imageBytes = Width * Height * Depth

	// recordBytes is one record on disk: a label byte followed by the pixels.
	recordBytes = 1 + imageBytes

	// imageFloats is the per-image length of the decoded float32 buffer.
	imageFloats = Width * Height * Depth
)

// Names of the ten classes, indexed by label value.
var Names = []string{
	"airplane",
	"automobile",
	"bird",
	"cat",
	"deer",
	"dog",
	"frog",
	"horse",
	"ship",
	"truck",
}

// TrainBatchFiles and TestBatchFile are the batch files of the binary
// distribution, relative to the extracted archive directory. The original
// partition sizes are 50000 train and 10000 test examples; both partitions
// are concatenated into one pool before re-splitting.
var (
	TrainBatchFiles = []string{
		"data_batch_1.bin",
		"data_batch_2.bin",
		"data_batch_3.bin",
		"data_batch_4.bin",
		"data_batch_5.bin",
	}
	TestBatchFile = "test_batch.bin"
)

// Pool holds the full decoded dataset in memory: the concatenation of the
// original train and test partitions, pixel-normalized to [-1, 1]. Images
// are stored NHWC interleaved as one contiguous float32 buffer.
type Pool struct {
	images []float32 // len = Len()*imageFloats
	labels []int32
}

// Len returns the number of examples in the pool.
func (p *Pool) Len() int { return len(p.labels) }

// Image returns the decoded pixel buffer of example i, shaped
// [Height, Width, Depth] flattened. The returned slice aliases the pool's
// backing buffer and must not be mutated.
func (p *Pool) Image(i int) []float32 {
	return p.images[i*imageFloats : (i+1)*imageFloats]
}

// Label returns the class label of example i.
func (p *Pool) Label(i int) int32 { return p.labels[i] }

// normalize maps a raw pixel byte to the fixed [-1, 1] training range:
// scale to [0, 1], then center and scale with mean=0.5, stddev=0.5.
func normalize(b byte) float32 {
	return (float32(b)/255 - 0.5) / 0.5
}

// batchFilePaths returns all six batch files, train partition first,
// under the extracted archive directory below baseDir.
func batchFilePaths(baseDir string) []string {
	dir := filepath.Join(baseDir, LocalBinDir)
	paths := make([]string, 0, len(TrainBatchFiles)+1)
	for _, name := range TrainBatchFiles {
		paths = append(paths, filepath.Join(dir, name))
	}
	return append(paths, filepath.Join(dir, TestBatchFile))
}

// LoadPool decodes all batch files under baseDir into a Pool, applying the
// fixed pixel normalization. If verbose is set a progress bar is printed
// while decoding. Download must have run (or the files must otherwise be
// present) or LoadPool fails.
func LoadPool(baseDir string, verbose bool) (*Pool, error) {
	paths := batchFilePaths(baseDir)

	var pBar *progressbar.ProgressBar
	if verbose {
		pBar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetDescription("Decoding CIFAR-10"),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files"),
		)
	}

	pool := &Pool{}
	for _, p := range paths {
		if err := pool.appendBatchFile(p); err != nil {
			return nil, err
		}
		if pBar != nil {
			_ = pBar.Add(1)
		}
	}
	if pBar != nil {
		_ = pBar.Close()
		_, _ = os.Stdout.WriteString("\n")
	}
	return pool, nil
}

// appendBatchFile decodes one binary batch file and appends its examples to
// the pool. Records are fixed-size, so any file size that is not a whole
// multiple of the record size means a truncated or corrupt download.
func (p *Pool) appendBatchFile(filePath string) error {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to read CIFAR-10 batch file %q", filePath)
	}
	if len(raw) == 0 || len(raw)%recordBytes != 0 {
		return errors.Errorf(
			"CIFAR-10 batch file %q has %d bytes, not a multiple of the %d-byte record; the download may be corrupt",
			filePath, len(raw), recordBytes)
	}

	numRecords := len(raw) / recordBytes
	base := len(p.labels)
	p.images = append(p.images, make([]float32, numRecords*imageFloats)...)
	p.labels = append(p.labels, make([]int32, numRecords)...)

	const plane = Width * Height
	for rec := 0; rec < numRecords; rec++ {
		record := raw[rec*recordBytes : (rec+1)*recordBytes]
		label := record[0]
		if int(label) >= NumClasses {
			return errors.Errorf(
				"CIFAR-10 batch file %q record %d has label %d, want < %d",
				filePath, rec, label, NumClasses)
		}
		p.labels[base+rec] = int32(label)

		// The file stores channel planes (RRR..GGG..BBB); the pool stores
		// interleaved NHWC, which is what the batch tensors are shaped as.
		pixels := record[1:]
		img := p.images[(base+rec)*imageFloats : (base+rec+1)*imageFloats]
		for px := 0; px < plane; px++ {
			img[px*Depth+0] = normalize(pixels[px])
			img[px*Depth+1] = normalize(pixels[plane+px])
			img[px*Depth+2] = normalize(pixels[2*plane+px])
		}
	}
	return nil
}
