package enrich

import (
	"context"
	"errors"
	"time"

	"osmautolink/internal/services"
)

// Clock abstracts time so tests can pace batches without waiting.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	return services.SleepWithContext(ctx, d)
}

// Batch is a half-open index range [Start, End) of the input.
type Batch struct {
	Index int
	Count int
	Start int
	End   int
}

// Size is the number of items in the batch.
func (b Batch) Size() int {
	return b.End - b.Start
}

// Pacer splits work into fixed-size batches separated by a fixed pause.
// Every batch except the last is followed by one Window, so n items take
// ceil(n/BatchSize)-1 windows regardless of how fast lookups return.
type Pacer struct {
	BatchSize int
	Window    time.Duration
	Clock     Clock
}

// Batches plans the batches for n items.
func (p Pacer) Batches(n int) []Batch {
	if n <= 0 || p.BatchSize <= 0 {
		return nil
	}
	count := (n + p.BatchSize - 1) / p.BatchSize
	out := make([]Batch, 0, count)
	for i := 0; i < count; i++ {
		start := i * p.BatchSize
		out = append(out, Batch{Index: i, Count: count, Start: start, End: min(start+p.BatchSize, n)})
	}
	return out
}

// Run calls fn for each batch in order, pausing between batches. It stops
// at the first error or when ctx is cancelled.
func (p Pacer) Run(ctx context.Context, n int, fn func(context.Context, Batch) error) error {
	if p.BatchSize <= 0 {
		return errors.New("pacer: batch size must be positive")
	}
	clock := p.clock()
	for _, batch := range p.Batches(n) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ctx, batch); err != nil {
			return err
		}
		if batch.Index < batch.Count-1 {
			if err := clock.Sleep(ctx, p.Window); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p Pacer) clock() Clock {
	if p.Clock == nil {
		return SystemClock{}
	}
	return p.Clock
}
