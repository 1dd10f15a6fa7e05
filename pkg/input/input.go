// Package input opens the files blamethrower reads and writes. Paths go
// through an afero filesystem, "-" means the standard stream, and .bz2, .gz
// and .lz4 files are (de)compressed transparently.
package input

import (
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
	"github.com/spf13/afero"
)

// Stdio is the path that selects standard input or output.
const Stdio = "-"

// ErrNoCompressor is returned when writing a format that can only be read.
var ErrNoCompressor = errors.New("compression format is read-only")

// Compression identifies a file's compression by extension.
type Compression string

// Known compressions.
const (
	CompressionNone  Compression = ""
	CompressionBzip2 Compression = ".bz2"
	CompressionGzip  Compression = ".gz"
	CompressionLZ4   Compression = ".lz4"
)

// CompressionOf returns the compression implied by path's extension.
func CompressionOf(path string) Compression {
	switch c := Compression(strings.ToLower(filepath.Ext(path))); c {
	case CompressionBzip2, CompressionGzip, CompressionLZ4:
		return c
	}

	return CompressionNone
}

// Opener opens paths on a filesystem.
type Opener struct {
	Fs     afero.Fs
	Stdin  io.Reader
	Stdout io.Writer
}

// NewOSOpener returns an Opener on the real filesystem and process streams.
func NewOSOpener() Opener {
	return Opener{Fs: afero.NewOsFs(), Stdin: os.Stdin, Stdout: os.Stdout}
}

// Open opens path for reading, decompressing it if needed.
func (o Opener) Open(path string) (io.ReadCloser, error) {
	if path == Stdio {
		return io.NopCloser(o.Stdin), nil
	}

	f, err := o.Fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	rc, err := decompress(path, f)
	if err != nil {
		f.Close()

		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return rc, nil
}

// Create opens path for writing, compressing it if needed.
func (o Opener) Create(path string) (io.WriteCloser, error) {
	if path == Stdio {
		return nopWriteCloser{o.Stdout}, nil
	}

	comp := CompressionOf(path)
	if comp == CompressionBzip2 {
		return nil, fmt.Errorf("create %s: %w", path, ErrNoCompressor)
	}

	f, err := o.Fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	switch comp {
	case CompressionGzip:
		return &stackedWriteCloser{Writer: gzip.NewWriter(f), closers: []io.Closer{f}}, nil
	case CompressionLZ4:
		return &stackedWriteCloser{Writer: lz4.NewWriter(f), closers: []io.Closer{f}}, nil
	case CompressionNone, CompressionBzip2:
	}

	return f, nil
}

func decompress(path string, f afero.File) (io.ReadCloser, error) {
	switch CompressionOf(path) {
	case CompressionBzip2:
		return readCloser{Reader: bzip2.NewReader(f), closers: []io.Closer{f}}, nil
	case CompressionGzip:
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}

		return readCloser{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case CompressionLZ4:
		return readCloser{Reader: lz4.NewReader(f), closers: []io.Closer{f}}, nil
	case CompressionNone:
	}

	return f, nil
}

type readCloser struct {
	io.Reader

	closers []io.Closer
}

func (rc readCloser) Close() error {
	var errs []error

	for _, c := range rc.closers {
		errs = append(errs, c.Close())
	}

	return errors.Join(errs...)
}

// stackedWriteCloser closes the compressor first so it can flush into the
// file it wraps.
type stackedWriteCloser struct {
	io.Writer

	closers []io.Closer
}

func (wc *stackedWriteCloser) Close() error {
	errs := []error{}

	if c, ok := wc.Writer.(io.Closer); ok {
		errs = append(errs, c.Close())
	}

	for _, c := range wc.closers {
		errs = append(errs, c.Close())
	}

	return errors.Join(errs...)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
