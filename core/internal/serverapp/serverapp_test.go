package serverapp

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"drfeedback/bundle"
	"drfeedback/core/internal/diagnose"
	"drfeedback/registry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func newServer(t *testing.T, maxSize int64) *httptest.Server {
	t.Helper()
	reg, err := registry.New(registry.Options{})
	require.NoError(t, err)
	d, err := diagnose.New(diagnose.Options{Registry: reg, IncludeArtifacts: true, Workers: 2, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	srv := httptest.NewServer(New(Config{
		Driver:        d,
		Analyzers:     reg.Entries(),
		MaxBundleSize: maxSize,
		Logger:        zaptest.NewLogger(t),
	}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func tarball(t *testing.T, artifacts ...bundle.Artifact) []byte {
	t.Helper()
	var b bytes.Buffer
	require.NoError(t, bundle.Write(&b, artifacts))
	return b.Bytes()
}

func post(t *testing.T, url, contentType string, body []byte) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(url, contentType, bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestHealth(t *testing.T) {
	srv := newServer(t, 0)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestAnalyzers(t *testing.T) {
	srv := newServer(t, 0)
	resp, err := http.Get(srv.URL + "/v1/analyzers")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out []analyzerInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Contains(t, out, analyzerInfo{Artifact: "wpalog.txt", Kind: "marker"})
	assert.Contains(t, out, analyzerInfo{Artifact: "packages.txt", Kind: "passthrough"})
}

func TestReportRawBody(t *testing.T) {
	srv := newServer(t, 0)
	resp, body := post(t, srv.URL+"/v1/reports?format=text", "application/gzip", tarball(t,
		bundle.NewArtifact("wpalog.txt", []byte("nothing useful\n")),
		bundle.NewArtifact("unknown.txt", []byte("hello")),
	))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Report-ID"))
	assert.Contains(t, body, "[wpalog.txt] There is no indication of a successful WPA wireless association")
	assert.Contains(t, body, "[unknown.txt] artifact not recognized: unknown.txt")
	assert.Contains(t, body, resp.Header.Get("X-Report-ID"))
}

func TestReportMultipart(t *testing.T) {
	srv := newServer(t, 0)

	var b bytes.Buffer
	mw := multipart.NewWriter(&b)
	require.NoError(t, mw.WriteField("note", "ignored"))
	fw, err := mw.CreateFormFile("file", "feedback.tar.gz")
	require.NoError(t, err)
	_, err = fw.Write(tarball(t, bundle.NewArtifact("dmesg.txt", []byte("wlan0: associated\n"))))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, body := post(t, srv.URL+"/v1/reports", mw.FormDataContentType(), b.Bytes())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "<!DOCTYPE html>"))
	assert.Contains(t, body, "wlan0: associated")
}

func TestReportMultipartWithoutFile(t *testing.T) {
	srv := newServer(t, 0)

	var b bytes.Buffer
	mw := multipart.NewWriter(&b)
	require.NoError(t, mw.WriteField("note", "no archive"))
	require.NoError(t, mw.Close())

	resp, _ := post(t, srv.URL+"/v1/reports", mw.FormDataContentType(), b.Bytes())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReportErrors(t *testing.T) {
	srv := newServer(t, 1024)

	resp, body := post(t, srv.URL+"/v1/reports", "application/octet-stream", []byte("not an archive"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "archive unreadable")
	assert.NotEmpty(t, resp.Header.Get("X-Report-ID"))

	resp, _ = post(t, srv.URL+"/v1/reports", "application/octet-stream", bytes.Repeat([]byte{0x1f}, 4096))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp, _ = post(t, srv.URL+"/v1/reports?format=pdf", "application/gzip", tarball(t))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	getResp, err := http.Get(srv.URL + "/v1/reports")
	require.NoError(t, err)
	getResp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, getResp.StatusCode)
	assert.Equal(t, http.MethodPost, getResp.Header.Get("Allow"))
}

func TestConcurrentRequestsAreIsolated(t *testing.T) {
	srv := newServer(t, 0)

	archives := [][]byte{
		tarball(t, bundle.NewArtifact("a.txt", []byte("a"))),
		tarball(t, bundle.NewArtifact("b.txt", []byte("b"))),
	}

	var wg sync.WaitGroup
	ids := make([]string, 8)
	bodies := make([]string, 8)
	for i := range ids {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Post(srv.URL+"/v1/reports?format=markdown", "application/gzip", bytes.NewReader(archives[i%2]))
			if err != nil {
				return
			}
			defer resp.Body.Close()
			b, _ := io.ReadAll(resp.Body)
			ids[i] = resp.Header.Get("X-Report-ID")
			bodies[i] = string(b)
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for i, id := range ids {
		require.NotEmpty(t, id)
		assert.False(t, seen[id])
		seen[id] = true

		own := []string{"a.txt", "b.txt"}[i%2]
		other := []string{"b.txt", "a.txt"}[i%2]
		assert.Contains(t, bodies[i], "artifact not recognized: "+own)
		assert.NotContains(t, bodies[i], other)
	}
}
