package graph

import (
	"fmt"
	"net/url"
	"strings"
)

// SQLite schema DDL constants

const schemaPeople = `
CREATE TABLE IF NOT EXISTS people (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT,
    phone TEXT,
    title TEXT,
    organization TEXT,
    role_category TEXT,
    relationship_strength TEXT,
    source TEXT,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
)`

const schemaOrganizations = `
CREATE TABLE IF NOT EXISTS organizations (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    abbreviation TEXT,
    type TEXT,
    parent TEXT,
    source TEXT,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
)`

const schemaContracts = `
CREATE TABLE IF NOT EXISTS contracts (
    name TEXT PRIMARY KEY,
    contract_number TEXT,
    title TEXT,
    value REAL NOT NULL DEFAULT 0 CHECK (value >= 0),
    award_date TEXT,
    agency TEXT,
    contractor_name TEXT,
    naics TEXT,
    source TEXT,
    description TEXT,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
)`

// Edges carry no foreign keys: an edge may arrive before its endpoints.
const schemaEdges = `
CREATE TABLE IF NOT EXISTS edges (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    from_id TEXT NOT NULL,
    from_type TEXT NOT NULL,
    to_id TEXT NOT NULL,
    to_type TEXT NOT NULL,
    relationship_type TEXT NOT NULL,
    properties TEXT,
    created_at DATETIME NOT NULL,
    UNIQUE(from_id, to_id, relationship_type)
)`

// Index definitions
const indexEdgesFrom = `CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_id, relationship_type)`
const indexEdgesTo = `CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id, relationship_type)`
const indexPeopleEmail = `CREATE INDEX IF NOT EXISTS idx_people_email ON people(lower(email))`
const indexPeopleRole = `CREATE INDEX IF NOT EXISTS idx_people_role ON people(role_category)`
const indexContractsContractor = `CREATE INDEX IF NOT EXISTS idx_contracts_contractor ON contracts(contractor_name)`
const indexContractsNAICS = `CREATE INDEX IF NOT EXISTS idx_contracts_naics ON contracts(naics)`

// SQLite pragmas. WAL lets request handlers read while another writes.
const pragmaWAL = `journal_mode(WAL)`
const pragmaBusyTimeout = `busy_timeout(5000)`
const pragmaSynchronous = `synchronous(NORMAL)`

// allSchemaStatements returns all schema DDL in order
func allSchemaStatements() []string {
	return []string{
		schemaPeople,
		schemaOrganizations,
		schemaContracts,
		schemaEdges,
		indexEdgesFrom,
		indexEdgesTo,
		indexPeopleEmail,
		indexPeopleRole,
		indexContractsContractor,
		indexContractsNAICS,
	}
}

// allPragmas returns all pragmas applied to every pooled connection
func allPragmas() []string {
	return []string{
		pragmaBusyTimeout,
		pragmaWAL,
		pragmaSynchronous,
	}
}

// isMemoryPath reports whether path names a private in-memory database
func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, ":memory:?") ||
		strings.Contains(path, "mode=memory")
}

// sqliteDSN builds a modernc DSN that applies the pragmas per connection and
// takes the write lock at BEGIN so delete-then-insert cannot deadlock.
func sqliteDSN(path string) string {
	q := url.Values{}
	for _, p := range allPragmas() {
		q.Add("_pragma", p)
	}
	q.Set("_txlock", "immediate")
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("file:%s%s%s", path, sep, q.Encode())
}
