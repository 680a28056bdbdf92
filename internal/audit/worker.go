package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/jwaldner/optionsengine/internal/logger"
)

// ErrChannelFull is returned when the worker cannot keep up with producers.
var ErrChannelFull = errors.New("audit channel full")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("audit logger closed")

// AuditAction represents operations sent to the audit channel
type AuditAction struct {
	Type  string // "append_entry" or "archive"
	Entry Entry
}

// Entry is one line of the audit file
type Entry struct {
	Timestamp string      `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
	Operation string      `json:"operation"`
	NonFinite bool        `json:"non_finite,omitempty"` // data carried NaN or Inf values
	Data      interface{} `json:"data,omitempty"`
}

// JSONLAuditLogger implements PricingAuditor with a single goroutine that owns
// the audit file; producers only ever touch the channel.
type JSONLAuditLogger struct {
	path       string
	archiveDir string
	now        func() time.Time

	mu     sync.RWMutex
	closed bool
	ch     chan AuditAction
	done   chan struct{}
}

// NewJSONLAuditLogger starts the worker for path. Archived files go to an
// "archive" directory next to it.
func NewJSONLAuditLogger(path string, bufferSize int) (*JSONLAuditLogger, error) {
	if path == "" {
		return nil, fmt.Errorf("audit file path is required")
	}
	if bufferSize <= 0 {
		bufferSize = 100
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	a := &JSONLAuditLogger{
		path:       path,
		archiveDir: filepath.Join(filepath.Dir(path), "archive"),
		now:        time.Now,
		ch:         make(chan AuditAction, bufferSize),
		done:       make(chan struct{}),
	}
	go a.auditWorker()
	return a, nil
}

// LogPricingOperation queues an audit operation without blocking
func (a *JSONLAuditLogger) LogPricingOperation(requestID string, operation string, data interface{}) error {
	logger.Verbose.Printf("🔍 AUDIT: Operation='%s', Request='%s'", operation, requestID)

	var action AuditAction
	switch strings.ToLower(operation) {
	case "archive":
		action = AuditAction{Type: "archive"}
	default:
		payload, nonFinite := sanitize(data)
		if !nonFinite {
			payload = data
		}
		action = AuditAction{Type: "append_entry", Entry: Entry{
			Timestamp: a.now().UTC().Format(time.RFC3339Nano),
			RequestID: requestID,
			Operation: operation,
			NonFinite: nonFinite,
			Data:      payload,
		}}
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	select {
	case a.ch <- action:
		return nil
	default:
		return ErrChannelFull
	}
}

// Close stops accepting entries, waits for the worker to write everything
// already queued and closes the file.
func (a *JSONLAuditLogger) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()

	<-a.done
	return nil
}

// auditWorker processes all audit operations in a single goroutine - OWNS ALL FILE OPERATIONS
func (a *JSONLAuditLogger) auditWorker() {
	defer close(a.done)

	var file *os.File
	defer func() {
		if file != nil {
			file.Close()
		}
	}()

	for action := range a.ch {
		switch action.Type {
		case "append_entry":
			if file == nil {
				f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
				if err != nil {
					logger.Warn.Printf("⚠️ AUDIT: Failed to open audit file: %v", err)
					continue
				}
				file = f
			}

			line, err := json.Marshal(action.Entry)
			if err != nil {
				logger.Warn.Printf("⚠️ AUDIT: Failed to encode entry for %s: %v", action.Entry.RequestID, err)
				continue
			}
			if _, err := file.Write(append(line, '\n')); err != nil {
				logger.Warn.Printf("⚠️ AUDIT: Failed to write audit file: %v", err)
			}

		case "archive":
			if file != nil {
				file.Close()
				file = nil
			}
			if _, err := os.Stat(a.path); err != nil {
				continue
			}
			if err := os.MkdirAll(a.archiveDir, 0755); err != nil {
				logger.Warn.Printf("⚠️ AUDIT: Failed to create archive directory: %v", err)
				continue
			}

			base := strings.TrimSuffix(filepath.Base(a.path), filepath.Ext(a.path))
			timestamp := a.now().Format("2006-01-02_15-04-05.000")
			archiveName := filepath.Join(a.archiveDir, fmt.Sprintf("%s_%s.jsonl", base, timestamp))
			if err := os.Rename(a.path, archiveName); err != nil {
				logger.Warn.Printf("⚠️ AUDIT: Failed to archive audit file: %v", err)
				continue
			}
			logger.Info.Printf("📁 AUDIT: Archived audit trail to %s", archiveName)

		default:
			logger.Warn.Printf("⚠️ AUDIT: INVALID ACTION TYPE '%s'", action.Type)
		}
	}
}

var marshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()

// sanitize rebuilds data in its JSON shape with NaN/Inf floats replaced by
// their string form, so encoding/json can still write the entry. Structs
// become maps keyed by their json names. The bool reports whether any
// replacement happened.
func sanitize(data interface{}) (interface{}, bool) {
	if data == nil {
		return nil, false
	}
	return walk(reflect.ValueOf(data))
}

func walk(v reflect.Value) (interface{}, bool) {
	if !v.IsValid() || !v.CanInterface() {
		return nil, false
	}
	if v.Type().Implements(marshalerType) {
		if v.Kind() == reflect.Pointer && v.IsNil() {
			return nil, false
		}
		return v.Interface(), false
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, false
		}
		return walk(v.Elem())

	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Sprint(f), true
		}
		return v.Interface(), false

	case reflect.Struct:
		out := make(map[string]interface{}, v.NumField())
		nonFinite := walkStruct(v, out)
		return out, nonFinite

	case reflect.Map:
		if v.IsNil() || v.Type().Key().Kind() != reflect.String {
			return v.Interface(), false
		}
		out := make(map[string]interface{}, v.Len())
		nonFinite := false
		iter := v.MapRange()
		for iter.Next() {
			x, bad := walk(iter.Value())
			out[iter.Key().String()] = x
			nonFinite = nonFinite || bad
		}
		return out, nonFinite

	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 || (v.Kind() == reflect.Slice && v.IsNil()) {
			return v.Interface(), false
		}
		out := make([]interface{}, v.Len())
		nonFinite := false
		for i := range out {
			x, bad := walk(v.Index(i))
			out[i] = x
			nonFinite = nonFinite || bad
		}
		return out, nonFinite
	}
	return v.Interface(), false
}

// walkStruct copies the exported fields of v into out under the names
// encoding/json would use. Embedded structs without a tag are flattened.
func walkStruct(v reflect.Value, out map[string]interface{}) bool {
	nonFinite := false
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")

		fv := v.Field(i)
		if f.Anonymous && name == "" && fv.Kind() == reflect.Struct && !f.Type.Implements(marshalerType) {
			if walkStruct(fv, out) {
				nonFinite = true
			}
			continue
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		x, bad := walk(fv)
		out[name] = x
		nonFinite = nonFinite || bad
	}
	return nonFinite
}
