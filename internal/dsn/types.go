// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package dsn classifies and rewrites database connection identities.
// A connection identity is the connection string a vendor instruction
// carries; it doubles as the registry key for live database sessions.
package dsn

import "fmt"

// DBType represents the engine a connection identity points at.
type DBType string

const (
	DBTypePostgreSQL DBType = "postgresql"
	DBTypeMongoDB    DBType = "mongodb"
	DBTypeMySQL      DBType = "mysql"
	DBTypeUnknown    DBType = "unknown"
)

// DefaultCatalog is the catalog used when an identity names none.
func (t DBType) DefaultCatalog() string {
	switch t {
	case DBTypeMongoDB:
		return "test"
	case DBTypePostgreSQL:
		return "postgres"
	case DBTypeMySQL:
		return "mysql"
	}
	return ""
}

// DSNInfo contains parsed information from a connection identity.
// Hosts keeps the raw authority so replica-set lists survive a round trip.
type DSNInfo struct {
	Type     DBType
	Scheme   string
	User     string
	Password string
	Hosts    string
	Database string
	Params   map[string]string
	Original string
}

// Catalog returns the database named by the identity, or the engine default.
func (d *DSNInfo) Catalog() string {
	if d.Database != "" {
		return d.Database
	}
	return d.Type.DefaultCatalog()
}

// ParseError represents an error that occurred during DSN parsing
type ParseError struct {
	DSN    string
	Reason string
	Hint   string
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("invalid DSN format: %s\nHint: %s", e.Reason, e.Hint)
	}
	return fmt.Sprintf("invalid DSN format: %s", e.Reason)
}

// NewParseError creates a new ParseError
func NewParseError(dsn, reason, hint string) *ParseError {
	return &ParseError{
		DSN:    dsn,
		Reason: reason,
		Hint:   hint,
	}
}
