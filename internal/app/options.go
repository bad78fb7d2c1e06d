package service

import (
	"github.com/eduguard/eduguard/internal/adapters/datastore"
	"github.com/eduguard/eduguard/internal/domain/homework"
	"github.com/eduguard/eduguard/internal/domain/risk"
	"github.com/eduguard/eduguard/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the backend used for reads and writes.
func WithStore(store datastore.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.source = store
			s.writer = store
			s.backend = store.Backend()
		}
	}
}

// WithSource sets a read-only source. Writes fail with ErrReadOnly.
func WithSource(src datastore.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
			s.writer = nil
		}
	}
}

// WithEngine sets the risk engine.
func WithEngine(e *risk.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithHomeworkDeriver sets the homework signal policy.
func WithHomeworkDeriver(d homework.Deriver) Option {
	return func(s *Service) {
		s.homework = d
	}
}

// WithConcurrency bounds parallel data store fetches.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithMaxClassSize caps the number of students evaluated per class request.
func WithMaxClassSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxClassSize = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
