package logstore

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/giantt-project/convergent/go/crdt"
	"github.com/giantt-project/convergent/go/ops"
	"github.com/giantt-project/convergent/go/value"
	log "github.com/sirupsen/logrus"
)

// Result reports the outcome of an Append.
type Result int

const (
	Added Result = iota
	Duplicate
)

// Log is the append-only envelope sequence of a single flow. The full
// log is held in memory; the file on disk is the durability boundary
// (each Append that returns Added is fsync'd before returning).
type Log struct {
	mu        sync.Mutex
	path      string
	file      *os.File
	byID      map[value.OpId]int // index into envelopes
	envelopes []crdt.Envelope
	logger    ops.Logger
	skipped   uint64
}

// Open loads path fully into memory, skipping malformed lines (counted,
// never fatal per spec.md §4.4), and keeps the file open for append.
// A trailing partial line (from a crash mid-write) is truncated away.
func Open(path string, logger ops.Logger) (*Log, error) {
	if logger == nil {
		logger = ops.Noop
	}

	var l = &Log{
		path:   path,
		byID:   make(map[value.OpId]int),
		logger: logger,
	}

	var existing, err = os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrIoFailure, path, err)
	}
	if err == nil {
		l.loadLines(existing)
		if n := len(existing); n > 0 && existing[n-1] != '\n' {
			var keep = int64(bytes.LastIndexByte(existing, '\n') + 1)
			if err := os.Truncate(path, keep); err != nil {
				return nil, fmt.Errorf("%w: truncating partial line in %s: %v", ErrIoFailure, path, err)
			}
		}
	}

	l.file, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrIoFailure, path, err)
	}
	return l, nil
}

func (l *Log) loadLines(data []byte) {
	var scanner = bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	// A trailing byte sequence with no terminating newline is a partial
	// write from a crash; bufio.Scanner's default split still yields it
	// as a final token, so detect and drop it explicitly.
	var hasTrailingNewline = len(data) == 0 || data[len(data)-1] == '\n'
	var lines [][]byte
	for scanner.Scan() {
		var line = make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		lines = append(lines, line)
	}
	if !hasTrailingNewline && len(lines) > 0 {
		lines = lines[:len(lines)-1]
	}

	for _, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var e crdt.Envelope
		if err := json.Unmarshal(line, &e); err != nil {
			l.skipped++
			l.logger.Log(log.WarnLevel, log.Fields{"error": err.Error(), "skipped_lines": l.skipped}, "skipped malformed log line")
			continue
		}
		l.insert(e)
	}
}

// insert adds e to the in-memory index without touching the file.
// Returns false if e.OpId was already present (idempotent ingest).
func (l *Log) insert(e crdt.Envelope) bool {
	if _, dup := l.byID[e.OpId]; dup {
		return false
	}
	l.byID[e.OpId] = len(l.envelopes)
	l.envelopes = append(l.envelopes, e)
	return true
}

// Append idempotently appends e, persisting it before returning.
func (l *Log) Append(e crdt.Envelope) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.byID[e.OpId]; dup {
		return Duplicate, nil
	}

	var encoded, err = json.Marshal(e)
	if err != nil {
		return Duplicate, fmt.Errorf("%w: encoding envelope %s: %v", ErrIoFailure, e.OpId, err)
	}
	encoded = append(encoded, '\n')

	if _, err := l.file.Write(encoded); err != nil {
		return Duplicate, fmt.Errorf("%w: writing envelope %s: %v", ErrIoFailure, e.OpId, err)
	}
	if err := l.file.Sync(); err != nil {
		return Duplicate, fmt.Errorf("%w: syncing %s: %v", ErrIoFailure, l.path, err)
	}

	l.insert(e)
	return Added, nil
}

// IngestMany bulk-appends, returning the count actually added (dedupe
// preserved: re-ingesting the same set twice adds zero the second time).
func (l *Log) IngestMany(envelopes []crdt.Envelope) (int, error) {
	var added int
	for _, e := range envelopes {
		var result, err = l.Append(e)
		if err != nil {
			return added, err
		}
		if result == Added {
			added++
		}
	}
	return added, nil
}

// Iter returns every envelope in canonical order (timestamp, author,
// clock).
func (l *Log) Iter() []crdt.Envelope {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out = make([]crdt.Envelope, len(l.envelopes))
	copy(out, l.envelopes)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		if out[i].Author != out[j].Author {
			return out[i].Author < out[j].Author
		}
		return out[i].Clock < out[j].Clock
	})
	return out
}

// Len reports how many envelopes are currently indexed.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.envelopes)
}

// SkippedCount reports how many malformed lines have been skipped since
// Open.
func (l *Log) SkippedCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.skipped
}

// ToBytes snapshots the log as NDJSON, suitable for FromBytes or for
// get_operations transport (§6).
func (l *Log) ToBytes() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var buf bytes.Buffer
	for _, e := range l.envelopes {
		var encoded, err = json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("encoding envelope %s: %w", e.OpId, err)
		}
		buf.Write(encoded)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// FromBytes parses an NDJSON snapshot, skipping malformed lines (counted,
// never fatal).
func FromBytes(r io.Reader) ([]crdt.Envelope, uint64, error) {
	var scanner = bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var envelopes []crdt.Envelope
	var skipped uint64
	for scanner.Scan() {
		var line = bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var e crdt.Envelope
		if err := json.Unmarshal(line, &e); err != nil {
			skipped++
			continue
		}
		envelopes = append(envelopes, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("%w: reading snapshot: %v", ErrIoFailure, err)
	}
	return envelopes, skipped, nil
}

// Close flushes and releases the underlying file handle.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	var err = l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("%w: closing %s: %v", ErrIoFailure, l.path, err)
	}
	return nil
}
