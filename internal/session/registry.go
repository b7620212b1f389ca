// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session owns the long-lived local resources vendor instructions run
// against: one database session per connection identity and at most one
// browser session per process.
//
// Sessions are created lazily on first use and live until they are closed
// explicitly or the registry is shut down. Creation of any one resource is
// deduplicated, so concurrent first uses connect or launch once. Failed
// creations are never cached; the next use retries.
package session

import (
	"context"
	stderrors "errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"vendorbridge/cli/internal/dsn"
	"vendorbridge/cli/internal/errors"
	"vendorbridge/cli/internal/logging"
)

// BrowserState is the lifecycle stage of the process-wide browser session.
type BrowserState int

const (
	BrowserUninitialized BrowserState = iota
	BrowserActive
	BrowserClosed
)

func (s BrowserState) String() string {
	switch s {
	case BrowserActive:
		return "active"
	case BrowserClosed:
		return "closed"
	}
	return "uninitialized"
}

// Registry maps identities to live sessions.
type Registry struct {
	mu       sync.Mutex
	dbs      map[string]*DatabaseSession
	browser  *BrowserSession
	state    BrowserState
	dialers  map[dsn.DBType]Dialer
	launcher Launcher
	group    singleflight.Group
	// gen advances on CloseAll; creations started in an older generation
	// are discarded instead of inserted
	gen uint64
	log *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithDialer registers the dialer used for identities of the given engine.
func WithDialer(kind dsn.DBType, d Dialer) Option {
	return func(r *Registry) { r.dialers[kind] = d }
}

// WithLauncher replaces the browser launcher.
func WithLauncher(l Launcher) Option {
	return func(r *Registry) { r.launcher = l }
}

// WithLogger sets the diagnostic logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// NewRegistry creates an empty registry with the MongoDB and PostgreSQL
// dialers and the rod browser launcher installed.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		dbs: make(map[string]*DatabaseSession),
		dialers: map[dsn.DBType]Dialer{
			dsn.DBTypeMongoDB:    DialMongo,
			dsn.DBTypePostgreSQL: DialPostgres,
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.launcher == nil {
		r.launcher = NewRodLauncher(r.log)
	}
	return r
}

// DatabaseSession returns the session for identity, connecting on first use.
// Connection failures surface as errors.ConnectionFailed and are not remembered.
func (r *Registry) DatabaseSession(ctx context.Context, identity string) (*DatabaseSession, error) {
	r.mu.Lock()
	s, ok := r.dbs[identity]
	r.mu.Unlock()
	if ok {
		return s, nil
	}

	info, err := dsn.ParseInfo(identity)
	if err != nil {
		return nil, errors.Wrap(errors.ConnectionFailed, "parse connection string", err)
	}
	dial, ok := r.dialers[info.Type]
	if !ok {
		return nil, errors.Newf(errors.UnsupportedOperation, "%s support not yet implemented", info.Type)
	}

	v, err, _ := r.group.Do("db:"+identity, func() (any, error) {
		r.mu.Lock()
		if s, ok := r.dbs[identity]; ok {
			r.mu.Unlock()
			return s, nil
		}
		gen := r.gen
		r.mu.Unlock()

		r.log.Info("connecting", zap.String("engine", string(info.Type)), logging.DSN(identity))
		conn, err := dial(ctx, identity)
		if err != nil {
			r.log.Warn("connect failed", logging.DSN(identity), zap.String("error", logging.Mask(err.Error())))
			var typed *errors.E
			if stderrors.As(err, &typed) {
				return nil, err
			}
			return nil, errors.Wrap(errors.ConnectionFailed, "connect "+string(info.Type), err)
		}

		s := &DatabaseSession{
			Identity:       identity,
			Kind:           info.Type,
			Conn:           conn,
			DefaultCatalog: info.Catalog(),
		}
		r.mu.Lock()
		if r.gen != gen {
			r.mu.Unlock()
			r.log.Info("registry closed during connect", logging.DSN(identity))
			_ = conn.Close(context.WithoutCancel(ctx))
			return nil, errors.New(errors.ConnectionFailed, "session registry closed while connecting")
		}
		r.dbs[identity] = s
		r.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*DatabaseSession), nil
}

// CloseDatabaseSession closes and forgets the session for identity.
// It reports whether a session existed.
func (r *Registry) CloseDatabaseSession(ctx context.Context, identity string) (bool, error) {
	r.mu.Lock()
	s, ok := r.dbs[identity]
	delete(r.dbs, identity)
	r.mu.Unlock()
	if !ok {
		return false, nil
	}
	r.log.Info("closing connection", logging.DSN(identity))
	return true, s.Conn.Close(ctx)
}

// DatabaseIdentities lists the identities with a live session.
func (r *Registry) DatabaseIdentities() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.dbs))
	for id := range r.dbs {
		out = append(out, id)
	}
	return out
}

// BrowserSession returns the browser session, launching one on first use.
// An active session is returned as is even when kind or headless differ from
// the values it was launched with: the first launch wins.
func (r *Registry) BrowserSession(ctx context.Context, kind string, headless bool) (*BrowserSession, error) {
	r.mu.Lock()
	if r.state == BrowserActive {
		b := r.browser
		r.mu.Unlock()
		return b, nil
	}
	r.mu.Unlock()

	v, err, _ := r.group.Do("browser", func() (any, error) {
		r.mu.Lock()
		if r.state == BrowserActive {
			b := r.browser
			r.mu.Unlock()
			return b, nil
		}
		gen := r.gen
		r.mu.Unlock()

		r.log.Info("launching browser", zap.String("kind", kind), zap.Bool("headless", headless))
		b, err := r.launcher(ctx, kind, headless)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		if r.gen != gen {
			r.mu.Unlock()
			r.log.Info("registry closed during launch")
			_ = b.Close()
			return nil, errors.New(errors.ConnectionFailed, "session registry closed while launching the browser")
		}
		r.browser = b
		r.state = BrowserActive
		r.mu.Unlock()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*BrowserSession), nil
}

// BrowserState reports the browser lifecycle stage.
func (r *Registry) BrowserState() BrowserState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// CloseBrowserSession tears the browser session down. Closing when no
// session is active is a no-op; the result reports whether one was closed.
func (r *Registry) CloseBrowserSession(ctx context.Context) (bool, error) {
	r.mu.Lock()
	b := r.browser
	r.browser = nil
	if r.state == BrowserActive {
		r.state = BrowserClosed
	}
	r.mu.Unlock()
	if b == nil {
		return false, nil
	}
	r.log.Info("closing browser")
	return true, b.Close()
}

// CloseAll releases every session. Each release is independent: a failure
// is logged and recorded but does not stop the remaining ones. Sessions
// still being created when CloseAll runs are closed as soon as they are up.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	r.gen++
	dbs := r.dbs
	r.dbs = make(map[string]*DatabaseSession)
	r.mu.Unlock()

	var errs []error
	for id, s := range dbs {
		if err := s.Conn.Close(ctx); err != nil {
			r.log.Error("close connection failed", logging.DSN(id), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		r.log.Info("closed connection", logging.DSN(id))
	}

	if _, err := r.CloseBrowserSession(ctx); err != nil {
		r.log.Error("close browser failed", zap.Error(err))
		errs = append(errs, err)
	}
	return stderrors.Join(errs...)
}
