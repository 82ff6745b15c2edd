// Package database stores the history of audit runs in SQLite.
//
// Every collect run is saved as one row: who ran it, which provider and
// model analysed it, the paths of the files it wrote, the score card of the
// report and the report text itself. The compare command reads the rows
// back to show how the score of a host changes over time.
//
// The database is a single file opened through modernc.org/sqlite, which
// is CGO-free, with WAL journaling and one writer connection.
package database
