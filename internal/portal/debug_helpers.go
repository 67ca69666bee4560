package portal

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/lamim/corrispettivi-report/internal/debug"
)

type contextKey string

const (
	debugLoggerKey contextKey = "debug_logger"
	tableLogKey    contextKey = "table_log"
)

// WithDebugLogger attaches a debug logger to the context.
func WithDebugLogger(ctx context.Context, logger *debug.Logger) context.Context {
	return context.WithValue(ctx, debugLoggerKey, logger)
}

// DebugLoggerFromContext returns the debug logger attached to ctx, if any.
func DebugLoggerFromContext(ctx context.Context) *debug.Logger {
	logger, _ := ctx.Value(debugLoggerKey).(*debug.Logger)
	return logger
}

// WithTableLog attaches the table log that requests made with ctx belong to.
func WithTableLog(ctx context.Context, tableLog *debug.TableLog) context.Context {
	return context.WithValue(ctx, tableLogKey, tableLog)
}

// TableLogFromContext returns the table log attached to ctx, if any.
func TableLogFromContext(ctx context.Context) *debug.TableLog {
	tableLog, _ := ctx.Value(tableLogKey).(*debug.TableLog)
	return tableLog
}

// LogError logs an error via the debug logger if available in context.
func LogError(ctx context.Context, message, category, errContext string) {
	logger := DebugLoggerFromContext(ctx)
	tableLog := TableLogFromContext(ctx)
	if logger == nil || tableLog == nil {
		return
	}
	logger.LogError(tableLog, message, category, errContext)
}

// HeadersToMap converts http.Header to a map for logging.
func HeadersToMap(headers map[string][]string) map[string]string {
	if headers == nil {
		return nil
	}
	result := make(map[string]string, len(headers))
	for k, v := range headers {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}

// debugTransport records requests and responses in the debug logger carried
// by the request context.
type debugTransport struct {
	next http.RoundTripper
}

func (d *debugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	logger := DebugLoggerFromContext(ctx)
	tableLog := TableLogFromContext(ctx)
	if !logger.IsEnabled() || tableLog == nil {
		return d.next.RoundTrip(req)
	}

	var reqBody []byte
	if req.Body != nil {
		reqBody, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(reqBody))
	}
	url := req.URL.String()
	logger.LogRequest(tableLog, req.Method, url, HeadersToMap(req.Header), string(reqBody))

	start := time.Now()
	resp, err := d.next.RoundTrip(req)
	if err != nil {
		logger.LogError(tableLog, err.Error(), "network", url)
		return nil, err
	}

	respBody, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(respBody))
	if readErr != nil {
		logger.LogError(tableLog, readErr.Error(), "read", url)
		return nil, readErr
	}
	logger.LogResponse(tableLog, url, resp.StatusCode, HeadersToMap(resp.Header), string(respBody), len(respBody), time.Since(start))
	return resp, nil
}
