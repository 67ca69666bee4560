// Package debug records every portal request made while annotating a page and
// writes one JSON log per plant for troubleshooting.
package debug

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const debugSchemaVersion = 1

// Logger handles debug logging for one page session
type Logger struct {
	mu          sync.Mutex
	enabled     bool
	fullCapture bool
	session     *Session
	outputPath  string
}

// Session represents the entire debug session
type Session struct {
	StartTime time.Time              `json:"start_time"`
	EndTime   *time.Time             `json:"end_time,omitempty"`
	Mode      string                 `json:"mode"`
	Plants    map[string]*PlantLog   `json:"-"`
	Info      map[string]interface{} `json:"info"`
}

// PlantLog contains debug data for a single plant
type PlantLog struct {
	SchemaVersion int         `json:"schema_version"`
	Nickname      string      `json:"nickname"`
	Tables        []*TableLog `json:"tables"`
}

// TableLog contains debug data for one plant-year table or one multi-plant load
type TableLog struct {
	ID        string                 `json:"id"`
	Year      int                    `json:"year"`
	StartTime time.Time              `json:"start_time"`
	EndTime   *time.Time             `json:"end_time,omitempty"`
	Duration  time.Duration          `json:"duration"`
	Status    string                 `json:"status"`
	Requests  []RequestLog           `json:"requests"`
	Responses []ResponseLog          `json:"responses"`
	Errors    []ErrorLog             `json:"errors"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// RequestLog captures HTTP request details
type RequestLog struct {
	Timestamp   time.Time         `json:"timestamp"`
	Method      string            `json:"method"`
	URL         string            `json:"url"`
	Headers     map[string]string `json:"headers,omitempty"`
	BodyPreview string            `json:"body_preview,omitempty"`
	BodyFull    string            `json:"body_full,omitempty"`
}

// ResponseLog captures HTTP response details
type ResponseLog struct {
	Timestamp   time.Time         `json:"timestamp"`
	URL         string            `json:"url"`
	StatusCode  int               `json:"status_code"`
	Headers     map[string]string `json:"headers,omitempty"`
	BodyPreview string            `json:"body_preview,omitempty"`
	BodyFull    string            `json:"body_full,omitempty"`
	BodySize    int               `json:"body_size"`
	Duration    time.Duration     `json:"duration"`
}

// ErrorLog captures error details with context
type ErrorLog struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Category  string    `json:"category,omitempty"`
	Context   string    `json:"context,omitempty"`
}

// NewLogger creates a new debug logger.
// fullCapture keeps complete bodies next to the truncated previews.
func NewLogger(enabled bool, fullCapture bool, outputDir, mode string) *Logger {
	logger := &Logger{
		enabled:     enabled,
		fullCapture: fullCapture,
		session: &Session{
			StartTime: time.Now(),
			Mode:      mode,
			Plants:    make(map[string]*PlantLog),
			Info: map[string]interface{}{
				"timestamp":    time.Now().Format(time.RFC3339),
				"full_capture": fullCapture,
			},
		},
	}

	if enabled {
		logger.outputPath = filepath.Join(outputDir, "debug")
	}

	return logger
}

// IsEnabled returns whether debug logging is enabled
func (l *Logger) IsEnabled() bool {
	return l != nil && l.enabled
}

// StartTable begins logging the work done for one plant and year
func (l *Logger) StartTable(nickname string, year int) *TableLog {
	if !l.IsEnabled() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	plant, exists := l.session.Plants[nickname]
	if !exists {
		plant = &PlantLog{
			SchemaVersion: debugSchemaVersion,
			Nickname:      nickname,
		}
		l.session.Plants[nickname] = plant
	}

	tableLog := &TableLog{
		ID:        uuid.NewString(),
		Year:      year,
		StartTime: time.Now(),
		Status:    "running",
		Requests:  []RequestLog{},
		Responses: []ResponseLog{},
		Errors:    []ErrorLog{},
		Metadata:  make(map[string]interface{}),
	}
	plant.Tables = append(plant.Tables, tableLog)
	return tableLog
}

// LogRequest logs an HTTP request
func (l *Logger) LogRequest(tableLog *TableLog, method, url string, headers map[string]string, body string) {
	if !l.IsEnabled() || tableLog == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	reqLog := RequestLog{
		Timestamp:   time.Now(),
		Method:      method,
		URL:         url,
		Headers:     redact(headers),
		BodyPreview: truncateString(body, 500),
	}
	if l.fullCapture {
		reqLog.BodyFull = body
	}

	tableLog.Requests = append(tableLog.Requests, reqLog)
}

// LogResponse logs an HTTP response
func (l *Logger) LogResponse(tableLog *TableLog, url string, statusCode int, headers map[string]string, body string, bodySize int, duration time.Duration) {
	if !l.IsEnabled() || tableLog == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	respLog := ResponseLog{
		Timestamp:   time.Now(),
		URL:         url,
		StatusCode:  statusCode,
		Headers:     headers,
		BodyPreview: truncateString(body, 1000),
		BodySize:    bodySize,
		Duration:    duration,
	}
	if l.fullCapture {
		respLog.BodyFull = body
	}

	tableLog.Responses = append(tableLog.Responses, respLog)
}

// LogError logs an error with context
func (l *Logger) LogError(tableLog *TableLog, message, category, context string) {
	if !l.IsEnabled() || tableLog == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tableLog.Errors = append(tableLog.Errors, ErrorLog{
		Timestamp: time.Now(),
		Message:   message,
		Category:  category,
		Context:   context,
	})
}

// SetMetadata adds metadata to a table log
func (l *Logger) SetMetadata(tableLog *TableLog, key string, value interface{}) {
	if !l.IsEnabled() || tableLog == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tableLog.Metadata[key] = value
}

// SetStatus records the terminal state of a table log
func (l *Logger) SetStatus(tableLog *TableLog, status string) {
	if !l.IsEnabled() || tableLog == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tableLog.Status = status
}

// EndTable marks a table log as complete
func (l *Logger) EndTable(tableLog *TableLog) {
	if !l.IsEnabled() || tableLog == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	tableLog.EndTime = &now
	tableLog.Duration = now.Sub(tableLog.StartTime)
	if tableLog.Status == "running" {
		tableLog.Status = "completed"
	}
}

// Finalize completes the debug session and writes per-plant log files
func (l *Logger) Finalize() error {
	if !l.IsEnabled() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.session.EndTime = &now

	if err := os.MkdirAll(l.outputPath, 0750); err != nil {
		return fmt.Errorf("failed to create debug output directory: %w", err)
	}

	plants := make([]string, 0, len(l.session.Plants))
	for name := range l.session.Plants {
		plants = append(plants, name)
	}
	sort.Strings(plants)

	sessionData := map[string]interface{}{
		"schema_version": debugSchemaVersion,
		"start_time":     l.session.StartTime,
		"end_time":       l.session.EndTime,
		"mode":           l.session.Mode,
		"info":           l.session.Info,
		"plants":         plants,
	}
	data, err := json.MarshalIndent(sessionData, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}
	if err := os.WriteFile(filepath.Join(l.outputPath, "session.json"), data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	for _, name := range plants {
		data, err := json.MarshalIndent(l.session.Plants[name], "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal plant data for %s: %w", name, err)
		}
		if err := os.WriteFile(l.plantPath(name), data, 0600); err != nil {
			return fmt.Errorf("failed to write plant file for %s: %w", name, err)
		}
	}

	return nil
}

// GetOutputPath returns the debug directory
func (l *Logger) GetOutputPath() string {
	return l.outputPath
}

// GetSessionPath returns the path to the session.json file
func (l *Logger) GetSessionPath() string {
	if !l.IsEnabled() {
		return ""
	}
	return filepath.Join(l.outputPath, "session.json")
}

// GetPlantPath returns the path to a plant's debug file
func (l *Logger) GetPlantPath(nickname string) string {
	if !l.IsEnabled() {
		return ""
	}
	return l.plantPath(nickname)
}

func (l *Logger) plantPath(nickname string) string {
	return filepath.Join(l.outputPath, safeFileName(nickname)+".json")
}

func safeFileName(name string) string {
	out := []rune(name)
	for i, r := range out {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			out[i] = '_'
		}
	}
	if len(out) == 0 {
		return "plant"
	}
	return string(out)
}

func redact(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return headers
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if k == "Authorization" || k == "Cookie" {
			v = "[redacted]"
		}
		out[k] = v
	}
	return out
}

// truncateString limits a string to a maximum length with ellipsis
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
