package room

import "github.com/rs/zerolog"

// DefaultCapacity is the number of members a game room accepts during
// matchmaking unless configured otherwise.
const DefaultCapacity = 2

type options struct {
	log      zerolog.Logger
	observer Observer
	capacity int
}

// Option configures a Room or Lobby.
type Option func(*options)

func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithCapacity sets the matchmaking capacity of a lobby's rooms. Values
// below one fall back to DefaultCapacity.
func WithCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

func buildOptions(opts []Option) options {
	o := options{log: zerolog.Nop(), capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	if o.capacity < 1 {
		o.capacity = DefaultCapacity
	}
	return o
}
