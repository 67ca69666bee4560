// Package testutil provides a local fake of the portal REST endpoints.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

// Server is a lightweight local HTTP test server wrapper.
type Server struct {
	URL       string
	listener  net.Listener
	server    *http.Server
	closeOnce sync.Once
}

// Close shuts down the test server.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		if s.server != nil {
			_ = s.server.Close()
		}
		if s.listener != nil {
			_ = s.listener.Close()
		}
	})
}

// NewIPv4Server creates a local HTTP server bound to 127.0.0.1.
// Tests are skipped when local socket binding is unavailable in the runtime.
func NewIPv4Server(t testing.TB, handler http.Handler) *Server {
	t.Helper()

	listener, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test: unable to bind local tcp4 listener: %v", err)
		return nil
	}

	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	testServer := &Server{
		URL:      fmt.Sprintf("http://%s", listener.Addr().String()),
		listener: listener,
		server:   server,
	}

	go func() {
		_ = server.Serve(listener)
	}()

	t.Cleanup(testServer.Close)
	return testServer
}

// Portal answers the read endpoints from canned bodies keyed by request path
// and records comment saves.
type Portal struct {
	mu       sync.Mutex
	bodies   map[string]string
	status   map[string]int
	hits     map[string]int
	saved    []map[string]interface{}
	saveBody string
	saveCode int
}

// NewPortal returns an empty fake portal. Unknown paths answer 404 with
// {"success":false}.
func NewPortal() *Portal {
	return &Portal{
		bodies:   make(map[string]string),
		status:   make(map[string]int),
		hits:     make(map[string]int),
		saveBody: `{"success":true}`,
		saveCode: http.StatusOK,
	}
}

// Handle registers the JSON body served at path.
func (p *Portal) Handle(path string, status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bodies[path] = body
	p.status[path] = status
}

// SaveResponse sets the answer to comment saves.
func (p *Portal) SaveResponse(status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saveCode = status
	p.saveBody = body
}

// Hits returns how many times path was requested.
func (p *Portal) Hits(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits[path]
}

// Saved returns the decoded comment save bodies received so far.
func (p *Portal) Saved() []map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]map[string]interface{}, len(p.saved))
	copy(out, p.saved)
	return out
}

func (p *Portal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	path := r.URL.EscapedPath()
	p.hits[path]++
	w.Header().Set("Content-Type", "application/json")

	if r.Method == http.MethodPost && strings.HasSuffix(path, "/salva-commento/") {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"success":false}`))
			return
		}
		p.saved = append(p.saved, body)
		w.WriteHeader(p.saveCode)
		_, _ = w.Write([]byte(p.saveBody))
		return
	}

	body, ok := p.bodies[path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false}`))
		return
	}
	w.WriteHeader(p.status[path])
	_, _ = w.Write([]byte(body))
}
