package util

import (
	"log/slog"
	"os"
)

// CloseFileFunc closes f and logs the error, for use in defer.
func CloseFileFunc(f *os.File) {
	if err := f.Close(); err != nil {
		slog.Warn("file.close.failed", "file", f.Name(), "err", err)
	}
}

// SyncDir fsyncs a directory so that renames inside it are durable.
func SyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer CloseFileFunc(d)
	return d.Sync()
}
