package cifar10

import (
	"os"
	"path"

	"github.com/gomlx/gomlx/examples/downloader"
	"github.com/pkg/errors"
)

const (
	// DownloadURL of the CIFAR-10 binary distribution.
	DownloadURL = "https://www.cs.toronto.edu/~kriz/cifar-10-binary.tar.gz"

	// LocalTarFile is the archive name under the data directory.
	LocalTarFile = "cifar-10-binary.tar.gz"

	// LocalBinDir is the directory the archive extracts to.
	LocalBinDir = "cifar-10-batches-bin"
)

// Download ensures the CIFAR-10 binary distribution is present under
// baseDir, fetching and untarring it if missing. The distribution site does
// not publish a checksum we pin, so integrity is checked structurally
// instead: every batch file must exist and hold whole fixed-size records.
// Errors from the download or the filesystem propagate unchanged.
func Download(baseDir string) error {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create data directory %q", baseDir)
	}
	tarFilePath := path.Join(baseDir, LocalTarFile)
	targetDir := path.Join(baseDir, LocalBinDir)
	if err := downloader.DownloadAndUntarIfMissing(DownloadURL, tarFilePath, baseDir, targetDir, ""); err != nil {
		return err
	}
	return VerifyBatchFiles(baseDir)
}

// VerifyBatchFiles checks that all six batch files exist under baseDir and
// that each file size is a whole multiple of the record size.
func VerifyBatchFiles(baseDir string) error {
	for _, p := range batchFilePaths(baseDir) {
		info, err := os.Stat(p)
		if err != nil {
			return errors.Wrapf(err, "CIFAR-10 batch file %q missing, re-run the download", p)
		}
		if info.Size() == 0 || info.Size()%recordBytes != 0 {
			return errors.Errorf(
				"CIFAR-10 batch file %q has %d bytes, not a multiple of the %d-byte record; delete %q and re-run the download",
				p, info.Size(), recordBytes, baseDir)
		}
	}
	return nil
}
