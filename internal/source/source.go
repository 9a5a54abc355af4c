// Package source provides a uniform byte stream over files, standard
// input, and compressed or archived variants of both, per spec.md §4.A.
package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dalibo/hl/internal/hlerr"
)

// Source is a uniform, length-aware byte stream. Read follows the same
// contract as io.Reader; eof additionally reports whether the stream is
// exhausted on this call (spec.md §4.A: "read(buf) -> (n, eof?)").
type Source struct {
	Name    string
	InputID int

	r      io.Reader
	closer io.Closer
	length int64 // -1 when unknown (compressed/piped sources)

	// Refresh, when non-nil, is called in follow mode after an EOF so the
	// source can notice appended bytes (spec.md §4.A). No opener in this
	// package sets it; plain files see appended bytes on the next Read.
	Refresh func() error
}

// Read implements the Input Source read contract.
func (s *Source) Read(buf []byte) (n int, eof bool, err error) {
	n, err = s.r.Read(buf)
	if err == io.EOF {
		return n, true, nil
	}
	if err != nil {
		return n, false, hlerr.New(hlerr.KindOpen, err)
	}
	return n, false, nil
}

// Len reports the source's total byte length when known.
func (s *Source) Len() (int64, bool) { return s.length, s.length >= 0 }

// Close releases any underlying file handles/decoders.
func (s *Source) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// Stdin returns a Source reading standard input. Length is never known.
func Stdin(inputID int) *Source {
	return &Source{Name: "-", InputID: inputID, r: os.Stdin, length: -1}
}

// codecFor returns the decompressor matching filename's suffix, or nil if
// filename is not compressed.
func codecFor(filename string) *codec {
	lower := strings.ToLower(filename)
	for i := range codecs {
		if strings.HasSuffix(lower, codecs[i].suffix) {
			return &codecs[i]
		}
	}
	return nil
}

// StripCompressionSuffix removes a recognized compression suffix from
// filename, leaving the base name (used to detect the underlying
// uncompressed format, e.g. "app.log.gz" -> "app.log").
func StripCompressionSuffix(filename string) string {
	lower := strings.ToLower(filename)
	for _, c := range codecs {
		if strings.HasSuffix(lower, c.suffix) {
			return filename[:len(filename)-len(c.suffix)]
		}
	}
	return filename
}

// IsArchive reports whether filename is a tar (optionally compressed) or
// 7z archive that OpenArchive should be used for instead of Open.
func IsArchive(filename string) bool {
	lower := strings.ToLower(filename)
	for _, suf := range []string{".tar", ".tar.gz", ".tgz", ".tar.zst", ".tar.zstd", ".tzst", ".7z"} {
		if strings.HasSuffix(lower, suf) {
			return true
		}
	}
	return false
}

// Open opens path as a plain or compressed file Source. Archives must go
// through OpenArchive instead.
func Open(path string, inputID int) (*Source, error) {
	if path == "-" {
		return Stdin(inputID), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, hlerr.New(hlerr.KindOpen, fmt.Errorf("open %s: %w", path, err))
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, hlerr.New(hlerr.KindOpen, fmt.Errorf("stat %s: %w", path, err))
	}
	if fi.IsDir() {
		f.Close()
		return nil, hlerr.New(hlerr.KindOpen, fmt.Errorf("%s is a directory", path))
	}

	c := codecFor(path)
	if c == nil {
		return &Source{Name: path, InputID: inputID, r: f, closer: f, length: fi.Size()}, nil
	}

	dec, err := c.open(f)
	if err != nil {
		f.Close()
		return nil, hlerr.New(hlerr.KindOpen, fmt.Errorf("%s decompressor for %s: %w", c.name, path, err))
	}
	return &Source{
		Name:    path,
		InputID: inputID,
		r:       dec,
		closer:  multiCloser{dec, f},
		length:  -1,
	}, nil
}

// multiCloser closes each closer in order, returning the first error.
type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
