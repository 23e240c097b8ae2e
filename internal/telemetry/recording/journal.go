package recording

import (
	"bufio"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	apperrors "github.com/gazelab/bluffing.eyes/internal/platform/errors"
)

// JournalFilename is the command journal's name inside a session directory.
const JournalFilename = "tracker_cmds.jsonl"

// JournalPath returns the journal location for a session directory.
func JournalPath(dir string) string {
	return filepath.Join(dir, JournalFilename)
}

// Entry is one journaled control command.
type Entry struct {
	TUTC     string `json:"t_utc"`
	Command  string `json:"command"`
	Endpoint string `json:"endpoint"`
	Detail   string `json:"detail,omitempty"`
}

// Journal appends undelivered control commands to a JSONL file, one object
// per line. Recording is best effort: failures are logged, never returned,
// because losing a journal note must not break the session.
type Journal struct {
	path string
	mu   sync.Mutex
}

// NewJournal builds a journal writing to path.
func NewJournal(path string) *Journal {
	return &Journal{path: path}
}

// Path returns the journal file location.
func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// Record appends one entry, stamping the time when unset. A nil journal
// discards entries.
func (j *Journal) Record(entry Entry) {
	if j == nil {
		return
	}
	if entry.TUTC == "" {
		entry.TUTC = time.Now().UTC().Format(time.RFC3339Nano)
	}
	line, err := json.Marshal(entry)
	if err != nil {
		log.Printf("encode journal entry: %v", err)
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if dir := filepath.Dir(j.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Printf("create journal directory: %v", err)
			return
		}
	}
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("open journal %s: %v", j.path, err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		log.Printf("append journal entry: %v", err)
	}
}

// ReadEntries loads every journal entry in file order.
func ReadEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "open command journal", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "decode command journal entry", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "read command journal", err)
	}
	return entries, nil
}
