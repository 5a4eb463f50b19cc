package provider

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/volnat/murmur/internal/core"
)

// RequestLogger writes completion traffic to daily JSONL files for
// debugging, alongside structured log lines.
type RequestLogger struct {
	logDir       string
	logRequests  bool
	logResponses bool
	logger       *slog.Logger
}

type logEntry struct {
	Timestamp  string         `json:"timestamp"`
	RequestID  string         `json:"request_id"`
	Type       string         `json:"type"`
	History    []core.Turn    `json:"history,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	Answer     string         `json:"answer,omitempty"`
	Duration   string         `json:"duration,omitempty"`
	Error      string         `json:"error,omitempty"`
	StatusCode int            `json:"status_code,omitempty"`
}

func NewRequestLogger(logDir string, logRequests, logResponses bool, logger *slog.Logger) *RequestLogger {
	return &RequestLogger{
		logDir:       logDir,
		logRequests:  logRequests,
		logResponses: logResponses,
		logger:       logger,
	}
}

func (l *RequestLogger) LogRequest(requestID core.RequestID, history []core.Turn, payload map[string]any) {
	if !l.logRequests {
		return
	}

	entry := logEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: string(requestID),
		Type:      "request",
		History:   history,
		Payload:   payload,
	}

	l.writeLog(entry)
	l.logger.Debug("completion request", "request_id", requestID, "turn_count", len(history))
}

func (l *RequestLogger) LogCompletion(requestID core.RequestID, answer string, duration time.Duration) {
	if !l.logResponses {
		return
	}

	entry := logEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: string(requestID),
		Type:      "completion",
		Answer:    answer,
		Duration:  duration.String(),
	}

	l.writeLog(entry)
}

func (l *RequestLogger) LogError(requestID core.RequestID, statusCode int, errorBody []byte, history []core.Turn) {
	entry := logEntry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		RequestID:  string(requestID),
		Type:       "error",
		StatusCode: statusCode,
		Error:      string(errorBody),
		History:    history,
	}

	l.writeLog(entry)

	l.logger.Error("completion request failed",
		"request_id", requestID,
		"status_code", statusCode,
		"error", string(errorBody),
	)
}

func (l *RequestLogger) writeLog(entry logEntry) {
	if l.logDir == "" {
		return
	}

	_ = os.MkdirAll(l.logDir, 0o755)

	logFile := filepath.Join(l.logDir, fmt.Sprintf("completion_%s.jsonl", time.Now().Format("2006-01-02")))

	data, _ := json.Marshal(entry)
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	_, _ = f.Write(data)
	_, _ = f.WriteString("\n")
}
