package versions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"drfeedback/logging"
)

var ErrNoManifest = errors.New("no reference manifest configured")

// Source yields the reference manifest. Implementations must not cache
// across calls.
type Source interface {
	Fetch(ctx context.Context) (Manifest, error)
}

// StaticSource serves a fixed in-memory manifest.
type StaticSource struct {
	Manifest Manifest
	Err      error
}

func (s StaticSource) Fetch(ctx context.Context) (Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	out := make(Manifest, len(s.Manifest))
	for k, v := range s.Manifest {
		out[k] = v
	}
	return out, nil
}

type HTTPOptions struct {
	URL          string
	SignatureURL string
	Keyring      openpgp.EntityList
	Timeout      time.Duration
	Retries      int
	Logger       *zap.Logger
}

type HTTPSource struct {
	opts   HTTPOptions
	client *retryablehttp.Client
}

func NewHTTPSource(opts HTTPOptions) (*HTTPSource, error) {
	if opts.URL == "" {
		return nil, ErrNoManifest
	}
	if opts.SignatureURL != "" && len(opts.Keyring) == 0 {
		return nil, errors.New("manifest signature URL set without a keyring")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	client := retryablehttp.NewClient()
	client.RetryMax = opts.Retries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = opts.Timeout
	client.Logger = logging.Retryable{L: opts.Logger.Named("manifest")}

	return &HTTPSource{opts: opts, client: client}, nil
}

// Fetch downloads, optionally verifies and decompresses the manifest. The
// whole operation, retries included, is bounded by the configured timeout.
func (s *HTTPSource) Fetch(ctx context.Context) (Manifest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	started := time.Now()
	body, err := s.get(ctx, s.opts.URL)
	if err != nil {
		return nil, err
	}

	if s.opts.SignatureURL != "" {
		sig, err := s.get(ctx, s.opts.SignatureURL)
		if err != nil {
			return nil, fmt.Errorf("signature: %w", err)
		}
		if err := VerifySignature(s.opts.Keyring, body, sig); err != nil {
			return nil, err
		}
	}

	plain, err := Decompress(body)
	if err != nil {
		return nil, err
	}
	m := ParseReference(plain)
	s.opts.Logger.Debug("reference manifest fetched",
		zap.String("url", s.opts.URL),
		zap.Int("packages", len(m)),
		zap.Duration("duration", time.Since(started)))
	return m, nil
}

func (s *HTTPSource) get(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Decompress recognizes gzip and zstd by their magic numbers; anything else
// is returned as is.
func Decompress(b []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(b, []byte{0x1f, 0x8b}):
		zr, err := gzip.NewReader(bytes.NewReader(b))
		if err != nil {
			return nil, fmt.Errorf("gzip manifest: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("gzip manifest: %w", err)
		}
		return out, nil
	case bytes.HasPrefix(b, []byte{0x28, 0xb5, 0x2f, 0xfd}):
		zr, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		out, err := zr.DecodeAll(b, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd manifest: %w", err)
		}
		return out, nil
	}
	return b, nil
}

func VerifySignature(keyring openpgp.EntityList, data, signature []byte) error {
	check := openpgp.CheckDetachedSignature
	if bytes.Contains(signature, []byte("-----BEGIN PGP SIGNATURE-----")) {
		check = openpgp.CheckArmoredDetachedSignature
	}
	if _, err := check(keyring, bytes.NewReader(data), bytes.NewReader(signature), nil); err != nil {
		return fmt.Errorf("verify manifest signature: %w", err)
	}
	return nil
}

// LoadKeyring reads an armored or binary OpenPGP public keyring.
func LoadKeyring(path string) (openpgp.EntityList, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if bytes.Contains(b, []byte("-----BEGIN PGP")) {
		return openpgp.ReadArmoredKeyRing(bytes.NewReader(b))
	}
	return openpgp.ReadKeyRing(bytes.NewReader(b))
}
