package importer

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// openExport opens an export file for reading, transparently decompressing
// gzipped archives. The returned close function must be called when done.
func openExport(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}

	if !strings.HasSuffix(strings.ToLower(path), ".gz") {
		return f, f.Close, nil
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("reading gzip %s: %w", path, err)
	}
	closeBoth := func() error {
		gzErr := gz.Close()
		if err := f.Close(); err != nil {
			return err
		}
		return gzErr
	}
	return gz, closeBoth, nil
}
