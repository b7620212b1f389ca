// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import (
	"net/url"
	"sort"
	"strings"
)

var schemes = []struct {
	prefix string
	typ    DBType
}{
	{"postgres://", DBTypePostgreSQL},
	{"postgresql://", DBTypePostgreSQL},
	{"mongodb+srv://", DBTypeMongoDB},
	{"mongodb://", DBTypeMongoDB},
	{"mysql://", DBTypeMySQL},
}

// DetectDBType detects the database type from a DSN string
func DetectDBType(dsn string) DBType {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	for _, s := range schemes {
		if strings.HasPrefix(lower, s.prefix) {
			return s.typ
		}
	}
	return DBTypeUnknown
}

// ParseInfo parses a connection identity into its parts.
// Passwords holding reserved characters (@, ^, =) that url.Parse rejects are
// recovered by a manual split on the last '@'.
func ParseInfo(dsn string) (*DSNInfo, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, NewParseError(dsn, "empty DSN", "provide a valid database connection string")
	}

	typ := DetectDBType(dsn)
	if typ == DBTypeUnknown {
		return nil, NewParseError(dsn, "unknown database type", "use mongodb://, mongodb+srv://, postgres:// or mysql://")
	}

	idx := strings.Index(dsn, "://")
	info := &DSNInfo{
		Type:     typ,
		Scheme:   strings.ToLower(dsn[:idx]),
		Params:   map[string]string{},
		Original: dsn,
	}
	rest := dsn[idx+3:]

	if q := strings.Index(rest, "?"); q >= 0 {
		values, err := url.ParseQuery(rest[q+1:])
		if err != nil {
			return nil, NewParseError(dsn, "malformed query parameters", "encode option values with percent escapes")
		}
		for k, v := range values {
			if len(v) > 0 {
				info.Params[k] = v[0]
			}
		}
		rest = rest[:q]
	}

	if at := strings.LastIndex(rest, "@"); at >= 0 {
		creds := rest[:at]
		rest = rest[at+1:]
		user, pass, _ := strings.Cut(creds, ":")
		info.User = unescape(user)
		info.Password = unescape(pass)
	}

	hosts, db, _ := strings.Cut(rest, "/")
	if hosts == "" {
		return nil, NewParseError(dsn, "missing host", "specify a host, e.g. localhost:27017")
	}
	info.Hosts = hosts
	info.Database = unescape(db)

	return info, nil
}

func unescape(s string) string {
	if out, err := url.PathUnescape(s); err == nil {
		return out
	}
	return s
}

// Normalize renders info back to a connection string with credentials and
// database name escaped. Query parameters are written in sorted order.
func Normalize(info *DSNInfo) string {
	var b strings.Builder
	b.WriteString(info.Scheme)
	b.WriteString("://")
	if info.User != "" {
		userinfo := url.User(info.User)
		if info.Password != "" {
			userinfo = url.UserPassword(info.User, info.Password)
		}
		b.WriteString(userinfo.String())
		b.WriteString("@")
	}
	b.WriteString(info.Hosts)
	if info.Database != "" || len(info.Params) > 0 {
		b.WriteString("/")
		b.WriteString(url.PathEscape(info.Database))
	}
	if len(info.Params) > 0 {
		keys := make([]string, 0, len(info.Params))
		for k := range info.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("?")
		for i, k := range keys {
			if i > 0 {
				b.WriteString("&")
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteString("=")
			b.WriteString(url.QueryEscape(info.Params[k]))
		}
	}
	return b.String()
}

// Parse parses a DSN string and returns the normalized connection string.
func Parse(dsn string) (string, error) {
	info, err := ParseInfo(dsn)
	if err != nil {
		return "", err
	}
	return Normalize(info), nil
}

// Validate validates a DSN string without normalizing it
func Validate(dsn string) error {
	_, err := ParseInfo(dsn)
	return err
}

// Catalog returns the database an identity selects, falling back to the
// engine default ("test" for MongoDB, "postgres" for PostgreSQL).
func Catalog(dsn string) string {
	info, err := ParseInfo(dsn)
	if err != nil {
		return ""
	}
	return info.Catalog()
}

// WithCatalog returns dsn rewritten to select catalog instead.
func WithCatalog(dsn, catalog string) (string, error) {
	info, err := ParseInfo(dsn)
	if err != nil {
		return "", err
	}
	info.Database = catalog
	return Normalize(info), nil
}
