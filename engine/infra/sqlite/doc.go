// Package sqlite provides the modernc.org/sqlite backed task repository.
//
// The package mirrors the postgres driver layout. Writes run in BEGIN
// IMMEDIATE transactions so the code-hash check and insert are serialized
// across connections.
package sqlite
