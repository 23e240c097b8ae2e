// Package sqlite provides the SQLite-backed session store.
//
// One database file holds the full durable record of a session: the
// append-only event journal, completed sync pairs, and gaze samples. Appends
// commit under WAL journaling before returning, so a crash after a successful
// append never loses the event. Only this package translates journal records
// into concrete SQL rows and transactions.
package sqlite
