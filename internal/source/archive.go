package source

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/dalibo/hl/internal/hlerr"
)

// OpenArchive extracts supported log members from a tar, tar.gz, tar.zst,
// or 7z archive and returns one Source per member, each carrying its own
// input-id so the pipeline treats every member as an independent
// chronology stream (spec.md §3: "input-id for multi-source runs").
// Grounded on the teacher's parser/tar_parser.go TarParser.
func OpenArchive(path string, nextInputID func() int) ([]*Source, error) {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".7z") {
		return open7z(path, nextInputID)
	}
	return openTar(path, nextInputID)
}

func openTar(path string, nextInputID func() int) ([]*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, hlerr.New(hlerr.KindOpen, fmt.Errorf("open archive %s: %w", path, err))
	}

	var r io.Reader = f
	var dec io.ReadCloser
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		dec, err = newParallelGzipReader(f)
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tar.zstd"), strings.HasSuffix(lower, ".tzst"):
		dec, err = newZstdDecoder(f)
	}
	if err != nil {
		f.Close()
		return nil, hlerr.New(hlerr.KindOpen, fmt.Errorf("decompress archive %s: %w", path, err))
	}
	if dec != nil {
		r = dec
	}

	tr := tar.NewReader(r)
	var sources []*Source
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			closeAll(f, dec)
			return nil, hlerr.New(hlerr.KindOpen, fmt.Errorf("reading archive %s: %w", path, err))
		}
		if hdr.Typeflag != tar.TypeReg || !looksLikeLog(hdr.Name) {
			continue
		}

		// tar entries are read sequentially off a single stream, so each
		// member's bytes are copied into memory before moving to the
		// next header.
		data, err := io.ReadAll(tr)
		if err != nil {
			closeAll(f, dec)
			return nil, hlerr.New(hlerr.KindOpen, fmt.Errorf("reading %s in archive %s: %w", hdr.Name, path, err))
		}
		sources = append(sources, &Source{
			Name:    path + "!" + hdr.Name,
			InputID: nextInputID(),
			r:       newByteReader(data),
			length:  int64(len(data)),
		})
	}
	closeAll(f, dec)
	return sources, nil
}

func open7z(path string, nextInputID func() int) ([]*Source, error) {
	r, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, hlerr.New(hlerr.KindOpen, fmt.Errorf("open 7z archive %s: %w", path, err))
	}

	var sources []*Source
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !looksLikeLog(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			r.Close()
			return nil, hlerr.New(hlerr.KindOpen, fmt.Errorf("reading %s in archive %s: %w", f.Name, path, err))
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			r.Close()
			return nil, hlerr.New(hlerr.KindOpen, fmt.Errorf("reading %s in archive %s: %w", f.Name, path, err))
		}
		sources = append(sources, &Source{
			Name:    path + "!" + f.Name,
			InputID: nextInputID(),
			r:       newByteReader(data),
			length:  int64(len(data)),
		})
	}
	r.Close()
	return sources, nil
}

func closeAll(f *os.File, dec io.ReadCloser) {
	if dec != nil {
		dec.Close()
	}
	f.Close()
}

func looksLikeLog(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range []string{".log", ".json", ".txt", ".gz", ".zst", ".zstd"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// byteReader is a minimal io.Reader over an in-memory slice, used for
// archive members that are fully materialized from the archive stream.
type byteReader struct {
	data []byte
	pos  int
}

func newByteReader(data []byte) *byteReader { return &byteReader{data: data} }

func (b *byteReader) Read(p []byte) (int, error) {
	if b.pos >= len(b.data) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += n
	return n, nil
}
