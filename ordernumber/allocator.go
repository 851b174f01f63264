// Package ordernumber allocates human-readable order numbers of the form
// PREFIX-YYMMDD-NNNNN. The sequence restarts at 00001 every calendar day in
// the configured location.
package ordernumber

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go-giftshop/port"

	"github.com/rs/zerolog"
)

const (
	DefaultPrefix   = "DD"
	DefaultAttempts = 5

	sequenceDigits = 5
	maxSequence    = 99999
	dayLayout      = "060102"
)

var (
	ErrSequenceExhausted   = errors.New("daily order sequence exhausted")
	ErrAllocationExhausted = errors.New("order number allocation attempts exhausted")
	ErrMalformedNumber     = errors.New("malformed order number")
)

// Finder looks up the greatest stored order number starting with prefix.
// It returns "" when the prefix has no orders yet.
type Finder interface {
	LatestOrderNumber(ctx context.Context, prefix string) (string, error)
}

type Allocator struct {
	finder   Finder
	prefix   string
	location *time.Location
	now      func() time.Time
	attempts int
}

type Option func(*Allocator)

func WithPrefix(prefix string) Option {
	return func(a *Allocator) { a.prefix = prefix }
}

func WithLocation(loc *time.Location) Option {
	return func(a *Allocator) { a.location = loc }
}

func WithClock(now func() time.Time) Option {
	return func(a *Allocator) { a.now = now }
}

// WithAttempts bounds how many numbers Allocate tries before giving up.
func WithAttempts(n int) Option {
	return func(a *Allocator) { a.attempts = n }
}

func New(finder Finder, opts ...Option) *Allocator {
	a := &Allocator{
		finder:   finder,
		prefix:   DefaultPrefix,
		location: time.UTC,
		now:      time.Now,
		attempts: DefaultAttempts,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.attempts < 1 {
		a.attempts = 1
	}
	return a
}

// DayPrefix is the shared prefix of every order number allocated on t's day,
// including the trailing separator.
func (a *Allocator) DayPrefix(t time.Time) string {
	return a.prefix + "-" + t.In(a.location).Format(dayLayout) + "-"
}

// Next computes the number following the latest one stored for today. It does
// not reserve anything: two callers can get the same value, so the store must
// reject duplicates and the caller must retry, which Allocate does.
func (a *Allocator) Next(ctx context.Context) (string, error) {
	prefix := a.DayPrefix(a.now())

	latest, err := a.finder.LatestOrderNumber(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("finder.LatestOrderNumber[%s]: %w", prefix, err)
	}

	seq := 1
	if latest != "" {
		last, err := parseSequence(latest, prefix)
		if err != nil {
			return "", err
		}
		seq = last + 1
	}

	if seq > maxSequence {
		return "", fmt.Errorf("%s: %w", prefix, ErrSequenceExhausted)
	}

	return fmt.Sprintf("%s%0*d", prefix, sequenceDigits, seq), nil
}

// Allocate picks a number and hands it to create, retrying with a fresh number
// while create reports port.ErrConflict. Any other error stops the loop.
func (a *Allocator) Allocate(ctx context.Context, create func(ctx context.Context, number string) error) (string, error) {
	for attempt := 1; attempt <= a.attempts; attempt++ {
		number, err := a.Next(ctx)
		if err != nil {
			return "", err
		}

		err = create(ctx, number)
		if err == nil {
			return number, nil
		}
		if !errors.Is(err, port.ErrConflict) {
			return "", err
		}

		zerolog.Ctx(ctx).Debug().
			Str("order_number", number).
			Int("attempt", attempt).
			Msg("order number taken, retrying")

		if err := ctx.Err(); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("%d attempts: %w", a.attempts, ErrAllocationExhausted)
}

func parseSequence(number, prefix string) (int, error) {
	tail, ok := strings.CutPrefix(number, prefix)
	if !ok || len(tail) != sequenceDigits {
		return 0, fmt.Errorf("%q: %w", number, ErrMalformedNumber)
	}

	seq, err := strconv.Atoi(tail)
	if err != nil || seq < 0 {
		return 0, fmt.Errorf("%q: %w", number, ErrMalformedNumber)
	}
	return seq, nil
}
