// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"vendorbridge/cli/internal/dsn"
)

// Conn is a live driver handle owned by a DatabaseSession.
type Conn interface {
	Close(ctx context.Context) error
}

// Dialer opens a connection for an identity. The returned handle must be
// usable concurrently; the registry adds no locking around it.
type Dialer func(ctx context.Context, identity string) (Conn, error)

// DatabaseSession is one live connection keyed by its identity.
type DatabaseSession struct {
	Identity string
	Kind     dsn.DBType
	Conn     Conn
	// DefaultCatalog is the database selected by the identity, or the engine default.
	DefaultCatalog string
}

// MongoConn wraps a connected MongoDB client.
type MongoConn struct {
	Client *mongo.Client
}

func (c *MongoConn) Close(ctx context.Context) error { return c.Client.Disconnect(ctx) }

// DialMongo connects and pings the primary so bad credentials fail here
// rather than on the first operation.
func DialMongo(ctx context.Context, identity string) (Conn, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(identity).SetAppName("vendorbridge"))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return &MongoConn{Client: client}, nil
}

// PostgresConn wraps a pgx connection pool.
type PostgresConn struct {
	Pool *pgxpool.Pool
}

func (c *PostgresConn) Close(context.Context) error {
	c.Pool.Close()
	return nil
}

// DialPostgres opens a pool after normalizing passwords with reserved characters.
func DialPostgres(ctx context.Context, identity string) (Conn, error) {
	normalized, err := dsn.Parse(identity)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresConn{Pool: pool}, nil
}
