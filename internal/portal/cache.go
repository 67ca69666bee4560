package portal

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// cachedResponse stores the response fields needed to replay a GET.
type cachedResponse struct {
	Status     string              `json:"status"`
	StatusCode int                 `json:"status_code"`
	Proto      string              `json:"proto"`
	Header     map[string][]string `json:"header"`
	Body       []byte              `json:"body"`
}

// CachingRoundTripper replays successful portal reads from a directory of
// JSON files, so a report can be regenerated without hitting the backend.
// Only GET requests answered with 200 are stored.
type CachingRoundTripper struct {
	// UnderlyingTransport is used on a cache miss. Defaults to http.DefaultTransport.
	UnderlyingTransport http.RoundTripper

	// CacheDir is the directory where response files are stored.
	CacheDir string
}

func (c *CachingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	next := c.UnderlyingTransport
	if next == nil {
		next = http.DefaultTransport
	}
	if req.Method != http.MethodGet {
		return next.RoundTrip(req)
	}

	path := c.cacheFilePath(cacheKey(req.Method, req.URL.String()))
	if data, err := os.ReadFile(path); err == nil {
		var cr cachedResponse
		if err := json.Unmarshal(data, &cr); err == nil {
			return buildHTTPResponse(req, cr), nil
		}
	}

	resp, err := next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	cr := cachedResponse{
		Status:     resp.Status,
		StatusCode: resp.StatusCode,
		Proto:      resp.Proto,
		Header:     resp.Header.Clone(),
		Body:       body,
	}
	if resp.StatusCode == http.StatusOK {
		if err := saveCachedResponse(path, &cr); err != nil {
			return nil, fmt.Errorf("store cached response: %w", err)
		}
	}

	return buildHTTPResponse(req, cr), nil
}

// cacheKey hashes method and URL. Headers are ignored.
func cacheKey(method, url string) string {
	hash := sha256.New()
	hash.Write([]byte(method))
	hash.Write([]byte(url))
	return hex.EncodeToString(hash.Sum(nil))
}

func (c *CachingRoundTripper) cacheFilePath(key string) string {
	return filepath.Join(c.CacheDir, key+".json")
}

func saveCachedResponse(path string, cr *cachedResponse) error {
	data, err := json.MarshalIndent(cr, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func buildHTTPResponse(req *http.Request, cr cachedResponse) *http.Response {
	return &http.Response{
		Status:        cr.Status,
		StatusCode:    cr.StatusCode,
		Proto:         cr.Proto,
		Header:        cr.Header,
		Body:          io.NopCloser(bytes.NewReader(cr.Body)),
		ContentLength: int64(len(cr.Body)),
		Request:       req,
	}
}
