package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/FelixDorner/LinkCard/internal/pkg/env"
)

// Record is the structured shape every log event takes, both on the console
// sink and on the wire to the collector endpoint.
type Record struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	SessionID string                 `json:"sessionId"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

var (
	mu        sync.RWMutex
	base      zerolog.Logger
	collector string
	client    = &http.Client{Timeout: 5 * time.Second}
)

func init() {
	base = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// Setup reads collector configuration from the environment. The console sink
// is always active; shipping to the collector endpoint is opt-in.
func Setup() {
	mu.Lock()
	defer mu.Unlock()
	zerolog.TimeFieldFormat = time.RFC3339
	if env.GetEnv("LOG_SHIPPING_ENABLED", "false") == "true" {
		collector = env.GetEnv("LOG_COLLECTOR_URL", "")
	} else {
		collector = ""
	}
}

// SetOutput redirects the console sink. Used by tests.
func SetOutput(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
}

func Info(sessionID, message string, data map[string]interface{}) {
	emit(zerolog.InfoLevel, sessionID, message, data)
}

func Warn(sessionID, message string, data map[string]interface{}) {
	emit(zerolog.WarnLevel, sessionID, message, data)
}

func Error(sessionID, message string, data map[string]interface{}) {
	emit(zerolog.ErrorLevel, sessionID, message, data)
}

func emit(level zerolog.Level, sessionID, message string, data map[string]interface{}) {
	mu.RLock()
	logger := base
	url := collector
	mu.RUnlock()

	ev := logger.WithLevel(level).Str("sessionId", sessionID)
	if data != nil {
		ev = ev.Fields(data)
	}
	ev.Msg(message)

	if url == "" {
		return
	}
	rec := Record{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		SessionID: sessionID,
		Message:   message,
		Data:      data,
	}
	go ship(url, rec)
}

// ship delivers a record to the collector endpoint. Failures are swallowed so
// a broken collector can never take the request path down with it.
func ship(url string, rec Record) {
	body, err := json.Marshal(rec)
	if err != nil {
		return
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return
	}
	_ = resp.Body.Close()
}
