// Package wal implements the write-ahead log from spec §4.8: every decision,
// execution, risk_check, state_change, and error is appended to a JSONL file
// before the effect it describes takes place, so a crash can never lose a
// decision the rest of the system acted on.
//
// Grounded on original_source/backend/core/wal_logger.py, translated from
// Python's line-buffered append-mode file handle to Go's *os.File plus
// bufio.Writer with an explicit Flush after every entry (the equivalent of
// Python's buffering=1).
package wal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"hftcore/internal/reason"
)

// Event types, matching wal_logger.py's EVENT_* constants.
const (
	EventDecision    = "decision"
	EventExecution   = "execution"
	EventRiskCheck   = "risk_check"
	EventStateChange = "state_change"
	EventError       = "error"
)

// Entry is one WAL record. Timestamp is the engine-supplied time, never
// time.Now() inside the tick pipeline (see SPEC_FULL.md, Open Questions #2) —
// the now given to engine.ProcessTick: the tick's own LocalTimestamp from
// cmd/backtest, wall-clock time from cmd/live.
type Entry struct {
	Timestamp    float64                `json:"timestamp"`
	EventType    string                 `json:"event_type"`
	EventID      string                 `json:"event_id"`
	Data         map[string]interface{} `json:"data"`
	ReasonCode   string                 `json:"reason_code,omitempty"`
	ReasonDetail string                 `json:"reason_detail,omitempty"`
}

// Logger is a JSONL write-ahead logger with size-triggered rotation.
type Logger struct {
	mu          sync.Mutex
	path        string
	file        *os.File
	w           *bufio.Writer
	maxBytes    int64
	idSeq       uint64 // monotonic counter backing deterministic event ids
	entries     int64
	bytesOut    int64
}

// Options configures a Logger.
type Options struct {
	// MaxFileSizeMB triggers rotation once the current file exceeds it.
	// Zero selects the default of 100MB, as in wal_logger.py; a negative value
	// disables rotation.
	MaxFileSizeMB int
}

// Open creates or appends to the WAL file at path, creating parent
// directories as needed.
func Open(path string, opts Options) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("wal: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("wal: stat %s: %w", path, err)
	}
	maxMB := opts.MaxFileSizeMB
	if maxMB == 0 {
		maxMB = 100
	}
	return &Logger{
		path:     path,
		file:     f,
		w:        bufio.NewWriter(f),
		maxBytes: int64(maxMB) * 1024 * 1024,
		bytesOut: info.Size(),
	}, nil
}

// NextEventID returns the next value in the logger's deterministic monotonic
// sequence, formatted as "evt-<n>". Replaying the same tick sequence through
// a fresh Logger reproduces the same ids (spec §8.1).
func (l *Logger) NextEventID() string {
	n := atomic.AddUint64(&l.idSeq, 1)
	return fmt.Sprintf("evt-%d", n)
}

func (l *Logger) write(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("wal: marshal entry: %w", err)
	}
	if _, err := l.w.Write(b); err != nil {
		return fmt.Errorf("wal: write entry: %w", err)
	}
	if err := l.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("wal: write newline: %w", err)
	}
	if err := l.w.Flush(); err != nil {
		return fmt.Errorf("wal: flush: %w", err)
	}
	l.entries++
	l.bytesOut += int64(len(b)) + 1

	if l.maxBytes > 0 && l.bytesOut > l.maxBytes {
		if err := l.rotateLocked(); err != nil {
			return err
		}
	}
	return nil
}

// Log appends a generic entry. The five Log* helpers below cover the event
// types the rest of the system actually emits.
func (l *Logger) Log(ts float64, eventType, eventID string, data map[string]interface{}, reasonCode, reasonDetail string) error {
	return l.write(Entry{
		Timestamp:    ts,
		EventType:    eventType,
		EventID:      eventID,
		Data:         data,
		ReasonCode:   reasonCode,
		ReasonDetail: reasonDetail,
	})
}

// LogDecision records a trading decision before it is acted on.
func (l *Logger) LogDecision(ts float64, eventID, decision, reasonCode, reasonDetail string, data map[string]interface{}) error {
	merged := mergeData(map[string]interface{}{"decision": decision}, data)
	return l.Log(ts, EventDecision, eventID, merged, reasonCode, reasonDetail)
}

// LogExecution records a fill or execution failure, after the decision it
// follows has already been written to the WAL.
func (l *Logger) LogExecution(ts float64, eventID, result string, data map[string]interface{}) error {
	merged := mergeData(map[string]interface{}{"result": result}, data)
	return l.Log(ts, EventExecution, eventID, merged, "", "")
}

// LogRiskCheck records a risk-guard verdict. action is the guard's
// allow/warn/reduce/close/freeze verdict, carried in the data payload; code
// is the closed reason.Code the verdict is attributed to, carried as the
// entry's reason_code so every risk_check entry satisfies spec §8 invariant
// 9 (the Python original puts the action string itself in reason_code —
// not a member of the closed enum — which this deliberately departs from).
func (l *Logger) LogRiskCheck(ts float64, eventID, action string, code reason.Code, detail string, data map[string]interface{}) error {
	merged := mergeData(map[string]interface{}{"action": action}, data)
	return l.Log(ts, EventRiskCheck, eventID, merged, string(code), detail)
}

// LogStateChange records an engine state transition.
func (l *Logger) LogStateChange(ts float64, eventID, oldState, newState, reason string) error {
	data := map[string]interface{}{"old_state": oldState, "new_state": newState}
	return l.Log(ts, EventStateChange, eventID, data, "STATE_CHANGE", reason)
}

// LogError records an error event. code is the closed reason.Code the
// failure is attributed to (spec §8 invariant 9); the Python original
// hardcodes reason_code='ERROR', which is not a member of the closed enum,
// so this deliberately departs from it.
func (l *Logger) LogError(ts float64, eventID, errType string, code reason.Code, errMessage string, data map[string]interface{}) error {
	merged := mergeData(map[string]interface{}{"error_type": errType, "error_message": errMessage}, data)
	return l.Log(ts, EventError, eventID, merged, string(code), errMessage)
}

func mergeData(base, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// Replay closes the active file handle, reads every entry back in order
// (optionally skipping anything before startTime), and reopens the file for
// further appends.
func (l *Logger) Replay(startTime *float64) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.w.Flush(); err != nil {
		return nil, fmt.Errorf("wal: flush before replay: %w", err)
	}
	if err := l.file.Close(); err != nil {
		return nil, fmt.Errorf("wal: close before replay: %w", err)
	}

	entries, err := ReadFile(l.path)
	if err != nil {
		return nil, err
	}
	if startTime != nil {
		filtered := entries[:0]
		for _, e := range entries {
			if e.Timestamp >= *startTime {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("wal: reopen after replay: %w", err)
	}
	l.file = f
	l.w = bufio.NewWriter(f)

	return entries, nil
}

func (l *Logger) rotateLocked() error {
	if err := l.w.Flush(); err != nil {
		return fmt.Errorf("wal: flush before rotate: %w", err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("wal: close before rotate: %w", err)
	}

	ts := time.Now().Format("20060102_150405")
	ext := filepath.Ext(l.path)
	base := l.path[:len(l.path)-len(ext)]
	archivePath := fmt.Sprintf("%s_%s%s", base, ts, ext)
	if err := os.Rename(l.path, archivePath); err != nil {
		return fmt.Errorf("wal: rotate rename: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("wal: open after rotate: %w", err)
	}
	l.file = f
	l.w = bufio.NewWriter(f)
	l.bytesOut = 0
	return nil
}

// Stats reports running totals, matching wal_logger.py's get_stats.
type Stats struct {
	LogPath         string
	EntriesWritten  int64
	BytesWritten    int64
	FileSizeMB      float64
}

// Stats returns the logger's current counters.
func (l *Logger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		LogPath:        l.path,
		EntriesWritten: l.entries,
		BytesWritten:   l.bytesOut,
		FileSizeMB:     float64(l.bytesOut) / (1024 * 1024),
	}
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.w.Flush(); err != nil {
		return fmt.Errorf("wal: flush on close: %w", err)
	}
	return l.file.Close()
}

// ReadFile reads and parses every line of a WAL file without requiring a
// live Logger; used by cmd/backtest to load a prior run's WAL and by tests.
// A malformed line — e.g. a torn final write left by a crash — is skipped
// with a log warning rather than aborting the read, per spec §6: a crash
// loses at most the in-flight line, never the replay of everything before it.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wal: open for read: %w", err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			log.Printf("[WARN] wal: %s:%d: skipping malformed entry: %v", path, lineNo, err)
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("wal: scan: %w", err)
	}
	return entries, nil
}
