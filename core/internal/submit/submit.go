package submit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"drfeedback/logging"
)

var ErrRejected = errors.New("bundle rejected by server")

type Options struct {
	ServerURL string
	Format    string
	Timeout   time.Duration
	Retries   int
	Logger    *zap.Logger
}

type Response struct {
	ReportID    string
	ContentType string
	Body        []byte
}

// Submit uploads a bundle as the "file" part of a multipart request and
// returns the rendered report. Server errors are retried; client errors
// are not.
func Submit(ctx context.Context, opts Options, name string, r io.Reader) (Response, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	endpoint, err := reportsURL(opts.ServerURL, opts.Format)
	if err != nil {
		return Response{}, err
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return Response{}, err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return Response{}, err
	}
	_ = mw.Close()

	client := retryablehttp.NewClient()
	client.RetryMax = opts.Retries
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = opts.Timeout
	client.Logger = logging.Retryable{L: opts.Logger.Named("submit")}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, body.Bytes())
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("%w: %s %s", ErrRejected, resp.Status, strings.TrimSpace(string(b)))
	}

	return Response{
		ReportID:    resp.Header.Get("X-Report-ID"),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        b,
	}, nil
}

func reportsURL(server, format string) (string, error) {
	u, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("server URL %q must be http or https", server)
	}
	u.Path += "/v1/reports"
	if format != "" {
		u.RawQuery = url.Values{"format": []string{format}}.Encode()
	}
	return u.String(), nil
}
