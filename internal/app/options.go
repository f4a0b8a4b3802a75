package service

import (
	"io"

	"github.com/okian/balanceboard/internal/adapters/device/discovery"
	"github.com/okian/balanceboard/internal/adapters/sink/cursor"
	"github.com/okian/balanceboard/internal/reader"
	"github.com/okian/balanceboard/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDevice uses dev instead of opening one from the configuration. The
// service closes it on Stop.
func WithDevice(dev reader.Device) Option {
	return func(s *Service) {
		s.injected = dev
	}
}

// WithConsoleWriter sets where the console sink renders.
func WithConsoleWriter(w io.Writer) Option {
	return func(s *Service) {
		if w != nil {
			s.stdout = w
		}
	}
}

// WithEmitter sets the pointer emitter used by the cursor sink.
func WithEmitter(e cursor.Emitter) Option {
	return func(s *Service) {
		if e != nil {
			s.emitter = e
		}
	}
}

// WithDiscovery passes options to the scanner used when no device path is
// configured.
func WithDiscovery(opts ...discovery.Option) Option {
	return func(s *Service) {
		s.discovery = append(s.discovery, opts...)
	}
}
