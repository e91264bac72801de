package bundle

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/zhyee/zipstream"
)

// ErrArchiveUnreadable is the only fatal condition of a diagnosis run.
var ErrArchiveUnreadable = errors.New("archive unreadable")

type Format string

const (
	FormatTarGzip Format = "tar.gz"
	FormatTarZstd Format = "tar.zst"
	FormatTar     Format = "tar"
	FormatZip     Format = "zip"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	zipMagic  = []byte("PK\x03\x04")
	tarMagic  = []byte("ustar")
)

const tarMagicOffset = 257

func unreadable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrArchiveUnreadable, fmt.Sprintf(format, args...))
}

// Detect sniffs the container format from the first bytes of the stream.
func Detect(head []byte) (Format, bool) {
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return FormatTarGzip, true
	case bytes.HasPrefix(head, zstdMagic):
		return FormatTarZstd, true
	case bytes.HasPrefix(head, zipMagic):
		return FormatZip, true
	case len(head) >= tarMagicOffset+len(tarMagic) && bytes.Equal(head[tarMagicOffset:tarMagicOffset+len(tarMagic)], tarMagic):
		return FormatTar, true
	}
	return "", false
}

// Extract reads every regular file member of the archive, in member order.
// Any failure to open or read the container is reported as ErrArchiveUnreadable.
func Extract(r io.Reader) ([]Artifact, error) {
	br := bufio.NewReaderSize(r, 1024)
	head, err := br.Peek(tarMagicOffset + len(tarMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, unreadable("read header: %v", err)
	}
	if len(head) == 0 {
		return nil, unreadable("empty input")
	}

	format, ok := Detect(head)
	if !ok {
		return nil, unreadable("unrecognized container format")
	}

	switch format {
	case FormatTarGzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, unreadable("gzip: %v", err)
		}
		defer zr.Close()
		return readTar(zr)
	case FormatTarZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, unreadable("zstd: %v", err)
		}
		defer zr.Close()
		return readTar(zr)
	case FormatZip:
		return readZip(br)
	default:
		return readTar(br)
	}
}

func readTar(r io.Reader) ([]Artifact, error) {
	tr := tar.NewReader(r)
	artifacts := []Artifact{}
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, unreadable("tar: %v", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, unreadable("tar member %s: %v", hdr.Name, err)
		}
		artifacts = append(artifacts, NewArtifact(hdr.Name, data))
	}
	return artifacts, nil
}

// readZip streams the archive with zipstream. Entries zipstream cannot
// stream, such as STORED members followed by a data descriptor, are read
// again from the buffered archive through its central directory.
func readZip(r io.Reader) ([]Artifact, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, unreadable("zip: %v", err)
	}

	artifacts, err := streamZip(bytes.NewReader(data))
	if err == nil {
		return artifacts, nil
	}

	artifacts, cerr := centralZip(data)
	if cerr != nil {
		return nil, unreadable("zip: %v", errors.Join(err, cerr))
	}
	return artifacts, nil
}

func streamZip(r io.Reader) ([]Artifact, error) {
	zr := zipstream.NewReader(r)
	artifacts := []Artifact{}
	for {
		entry, err := zr.GetNextEntry()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if strings.HasSuffix(entry.Name, "/") {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", entry.Name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", entry.Name, err)
		}
		artifacts = append(artifacts, NewArtifact(entry.Name, data))
	}
	return artifacts, nil
}

func centralZip(data []byte) ([]Artifact, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	artifacts := []Artifact{}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") || !f.Mode().IsRegular() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", f.Name, err)
		}
		artifacts = append(artifacts, NewArtifact(f.Name, b))
	}
	return artifacts, nil
}
