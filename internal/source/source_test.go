package source

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenPlainFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	if err := os.WriteFile(path, []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if l, ok := s.Len(); !ok || l != 6 {
		t.Fatalf("unexpected length: %d, %v", l, ok)
	}

	buf := make([]byte, 64)
	n, eof, err := s.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf[:n]) != "hello\n" {
		t.Fatalf("unexpected bytes: %q", buf[:n])
	}
	if eof {
		t.Fatalf("eof should not be reported before a follow-up read hits EOF")
	}
}

func TestOpenStdinSentinel(t *testing.T) {
	s := Stdin(3)
	if s.Name != "-" || s.InputID != 3 {
		t.Fatalf("unexpected stdin source: %+v", s)
	}
	if _, ok := s.Len(); ok {
		t.Fatalf("stdin length should be unknown")
	}
}

func TestStripCompressionSuffix(t *testing.T) {
	cases := map[string]string{
		"app.log.gz":   "app.log",
		"app.log.zst":  "app.log",
		"app.log.zstd": "app.log",
		"app.log":      "app.log",
	}
	for in, want := range cases {
		if got := StripCompressionSuffix(in); got != want {
			t.Fatalf("StripCompressionSuffix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsArchive(t *testing.T) {
	for _, name := range []string{"a.tar", "a.tar.gz", "a.tgz", "a.tar.zst", "a.7z"} {
		if !IsArchive(name) {
			t.Fatalf("%s should be detected as an archive", name)
		}
	}
	if IsArchive("a.log.gz") {
		t.Fatalf("a.log.gz is not an archive")
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.log"), 0)
	if err == nil {
		t.Fatalf("expected error opening a missing file")
	}
}

func TestOpenDirectoryRejected(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir, 0)
	if err == nil {
		t.Fatalf("expected error opening a directory")
	}
}

func TestByteReaderEOF(t *testing.T) {
	br := newByteReader([]byte("ab"))
	buf := make([]byte, 1)
	if n, err := br.Read(buf); n != 1 || err != nil {
		t.Fatalf("unexpected first read: %d %v", n, err)
	}
	if n, err := br.Read(buf); n != 1 || err != nil {
		t.Fatalf("unexpected second read: %d %v", n, err)
	}
	if n, err := br.Read(buf); n != 0 || err != io.EOF {
		t.Fatalf("expected EOF, got %d %v", n, err)
	}
}
