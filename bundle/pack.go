package bundle

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Write produces a gzip-compressed tar bundle holding the artifacts in order.
func Write(w io.Writer, artifacts []Artifact) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	modTime := time.Now().UTC().Truncate(time.Second)
	for _, a := range artifacts {
		hdr := &tar.Header{
			Name:     a.Name,
			Mode:     0o644,
			Size:     a.Size(),
			ModTime:  modTime,
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if _, err := tw.Write(a.Data); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

// Pack bundles every regular file below dir, sorted by relative path.
func Pack(w io.Writer, dir string) (int, error) {
	root := filepath.Clean(dir)

	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return 0, err
	}
	sort.Strings(paths)

	artifacts := make([]Artifact, 0, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return 0, err
		}
		rel, _ := filepath.Rel(root, p)
		artifacts = append(artifacts, Artifact{Name: filepath.ToSlash(rel), Data: b})
	}

	if err := Write(w, artifacts); err != nil {
		return 0, err
	}
	return len(artifacts), nil
}
