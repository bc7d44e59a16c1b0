package repository

import (
	"time"

	"github.com/google/uuid"
)

// timeResolution is the precision at which timestamps are stored.
const timeResolution = time.Millisecond

// Option customises how a repository assigns IDs and timestamps.
type Option func(*options)

type options struct {
	now   func() time.Time
	newID func() string
}

func defaultOptions() options {
	return options{
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
	}
}

// WithClock replaces the server clock used for created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator replaces the UUID generator used for ticket IDs.
func WithIDGenerator(gen func() string) Option {
	return func(o *options) { o.newID = gen }
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// toMillis and fromMillis convert between time.Time and the BIGINT unix
// milliseconds stored in the timestamp columns.
func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) *time.Time {
	t := time.UnixMilli(ms).UTC()
	return &t
}
