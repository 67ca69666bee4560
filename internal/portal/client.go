// Package portal talks to the corrispettivi REST endpoints of the plant portal.
package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/go-openapi/runtime"
	httptransport "github.com/go-openapi/runtime/client"
	"github.com/go-openapi/strfmt"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single portal request.
const DefaultTimeout = 30 * time.Second

// ErrCommentRejected is returned when the portal answers a save with success=false.
var ErrCommentRejected = errors.New("comment rejected by portal")

// StatusError reports a non-2xx answer to a write.
type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Path, e.Code)
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration
	RequestsPerSecond float64
	// CacheDir enables the on-disk replay cache for reads.
	CacheDir  string
	Transport http.RoundTripper
	Logger    *zap.Logger
}

// Client issues portal requests over a go-openapi runtime.
type Client struct {
	runtime *httptransport.Runtime
	schemes []string
	timeout time.Duration
	limiter *RateLimiter
	logger  *zap.Logger
}

// NewClient builds a client for the portal at opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("portal base URL is required")
	}
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid portal base URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid portal base URL: %s", opts.BaseURL)
	}

	rt := opts.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	if opts.CacheDir != "" {
		if err := os.MkdirAll(opts.CacheDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create cache dir: %w", err)
		}
		rt = &CachingRoundTripper{UnderlyingTransport: rt, CacheDir: filepath.Clean(opts.CacheDir)}
	}

	schemes := []string{u.Scheme}
	transport := httptransport.New(u.Host, u.Path, schemes)
	transport.Transport = &debugTransport{next: rt}
	transport.Formats = strfmt.Default
	if opts.Token != "" {
		transport.DefaultAuthentication = httptransport.BearerToken(opts.Token)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		runtime: transport,
		schemes: schemes,
		timeout: timeout,
		logger:  logger,
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = NewRateLimiter(opts.RequestsPerSecond)
	}
	return c, nil
}

// Fetch reads the JSON payload at path. The payload is decoded whatever the
// status code; Payload.Status carries it for callers that care.
func (c *Client) Fetch(ctx context.Context, path string) (*Payload, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := c.runtime.Submit(&runtime.ClientOperation{
		ID:                 "readSeries",
		Method:             http.MethodGet,
		PathPattern:        path,
		ProducesMediaTypes: []string{runtime.JSONMime},
		ConsumesMediaTypes: []string{runtime.JSONMime},
		Schemes:            c.schemes,
		Params: runtime.ClientRequestWriterFunc(func(r runtime.ClientRequest, _ strfmt.Registry) error {
			return r.SetTimeout(c.timeout)
		}),
		Reader: runtime.ClientResponseReaderFunc(func(resp runtime.ClientResponse, consumer runtime.Consumer) (interface{}, error) {
			payload := &Payload{}
			if err := consumer.Consume(resp.Body(), payload); err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
			payload.Status = resp.Code()
			return payload, nil
		}),
		Context: ctx,
	})
	if err != nil {
		LogError(ctx, err.Error(), "fetch", path)
		c.logger.Debug("portal read failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}

	payload, ok := result.(*Payload)
	if !ok {
		return nil, fmt.Errorf("fetch %s: unexpected result %T", path, result)
	}
	c.logger.Debug("portal read",
		zap.String("path", path),
		zap.Int("status", payload.Status),
		zap.Bool("success", payload.Success),
		zap.Duration("duration", time.Since(start)),
	)
	return payload, nil
}

// SaveComment posts a comment. A transport error, a non-2xx status or a body
// without success=true is an error.
func (c *Client) SaveComment(ctx context.Context, comment Comment) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	result, err := c.runtime.Submit(&runtime.ClientOperation{
		ID:                 "saveComment",
		Method:             http.MethodPost,
		PathPattern:        SaveCommentPath,
		ProducesMediaTypes: []string{runtime.JSONMime},
		ConsumesMediaTypes: []string{runtime.JSONMime},
		Schemes:            c.schemes,
		Params: runtime.ClientRequestWriterFunc(func(r runtime.ClientRequest, _ strfmt.Registry) error {
			if err := r.SetTimeout(c.timeout); err != nil {
				return err
			}
			return r.SetBodyParam(comment)
		}),
		Reader: runtime.ClientResponseReaderFunc(func(resp runtime.ClientResponse, consumer runtime.Consumer) (interface{}, error) {
			if resp.Code() < 200 || resp.Code() >= 300 {
				return nil, &StatusError{Path: SaveCommentPath, Code: resp.Code()}
			}
			var body struct {
				Success bool `json:"success"`
			}
			if err := consumer.Consume(resp.Body(), &body); err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
			return body.Success, nil
		}),
		Context: ctx,
	})
	if err != nil {
		LogError(ctx, err.Error(), "save", SaveCommentPath)
		return fmt.Errorf("save comment: %w", err)
	}
	if ok, _ := result.(bool); !ok {
		return ErrCommentRejected
	}

	c.logger.Info("comment saved",
		zap.String("nickname", comment.Nickname),
		zap.Int("anno", comment.Year),
		zap.Int("mese", comment.Month),
	)
	return nil
}
