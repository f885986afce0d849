/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memstore

import (
	"go.uber.org/zap"

	"github.com/suparena/storeflow/datastore"
	"github.com/suparena/storeflow/registry"
)

// Option configures a Store.
type Option func(*Store)

// WithPersister sets the backend PersistToDisk flushes to and Open loads from.
func WithPersister(p datastore.Persister) Option {
	return func(s *Store) {
		s.persister = p
	}
}

// WithRegistry validates saved records against reg.
func WithRegistry(reg *registry.Registry) Option {
	return func(s *Store) {
		s.registry = reg
	}
}

// WithMaxExpressionWidth rejects fetches whose widest In clause exceeds n.
// Zero disables the check.
func WithMaxExpressionWidth(n int) Option {
	return func(s *Store) {
		s.maxWidth = n
	}
}

// WithLogger sets the store logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}
