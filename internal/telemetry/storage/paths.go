package storage

import "path/filepath"

// DatabaseFilename is the session database file name inside a session
// directory.
const DatabaseFilename = "session.sqlite"

// SessionDir returns the directory holding one session's artifacts: the
// database, the per-round CSV files, the sync report, and the command
// journal.
func SessionDir(dataDir, sessionID string) string {
	return filepath.Join(dataDir, sessionID)
}

// DatabasePath returns the session database location.
func DatabasePath(dataDir, sessionID string) string {
	return filepath.Join(SessionDir(dataDir, sessionID), DatabaseFilename)
}
