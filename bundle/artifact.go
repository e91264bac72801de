package bundle

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

type Artifact struct {
	Name string
	Data []byte
}

func NewArtifact(name string, data []byte) Artifact {
	return Artifact{Name: BaseName(name), Data: data}
}

// BaseName strips any directory prefix from an archive member name.
func BaseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimRight(name, "/")
	if name == "" {
		return ""
	}
	return path.Base(name)
}

func (a Artifact) Size() int64 { return int64(len(a.Data)) }

func (a Artifact) Digest() string {
	sum := sha256.Sum256(a.Data)
	return hex.EncodeToString(sum[:])
}

// IsPNG reports whether the payload starts with the PNG file signature.
func (a Artifact) IsPNG() bool {
	return bytes.HasPrefix(a.Data, pngSignature)
}
