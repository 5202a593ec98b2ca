package archive

import "go.uber.org/zap"

// Option defines some options to Pack and Unpack
type Option func(*settings)

type settings struct {
	l       *zap.Logger
	onEntry func(name string)
}

func defaultSettings(opts []Option) settings {
	s := settings{
		l:       zap.NewNop(),
		onEntry: func(string) {},
	}
	for _, apply := range opts {
		apply(&s)
	}
	return s
}

// WithLogger reports warnings to a logger. The default is a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.l = l
		}
	}
}

// OnEntry is called once for every archive member written or extracted
func OnEntry(fn func(name string)) Option {
	return func(s *settings) {
		if fn != nil {
			s.onEntry = fn
		}
	}
}
