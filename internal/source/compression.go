package source

import (
	"io"
	"runtime"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

// newParallelGzipReader returns a pgzip reader configured for parallel
// decompression, grounded directly on the teacher's
// parser/autodetect.go newParallelGzipReader.
func newParallelGzipReader(r io.Reader) (io.ReadCloser, error) {
	threads := runtime.GOMAXPROCS(0)
	if threads < 1 {
		threads = 1
	}
	if threads > 8 {
		threads = 8
	}
	const blockSize = 1 << 20
	return pgzip.NewReaderN(r, blockSize, threads)
}

type zstdReadCloser struct{ *zstd.Decoder }

func (z *zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

func newZstdDecoder(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &zstdReadCloser{Decoder: dec}, nil
}

// codec names a streaming decompressor.
type codec struct {
	name   string
	suffix string
	open   func(io.Reader) (io.ReadCloser, error)
}

var codecs = []codec{
	{name: "gzip", suffix: ".gz", open: newParallelGzipReader},
	{name: "zstd", suffix: ".zst", open: newZstdDecoder},
	{name: "zstd", suffix: ".zstd", open: newZstdDecoder},
}
