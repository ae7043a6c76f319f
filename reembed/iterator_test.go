package reembed

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/vidsearch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceScanner serves a fixed set of points.
type sliceScanner struct {
	points []core.Point
	err    error
}

func (s *sliceScanner) Scan(ctx context.Context, fn func(core.Point) error) error {
	if s.err != nil {
		return s.err
	}
	for _, p := range s.points {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

func makePoints(n int) []core.Point {
	points := make([]core.Point, n)
	for i := range points {
		points[i] = core.Point{
			ID:      fmt.Sprintf("p%03d", i),
			Vector:  core.Vector{1, 0},
			Payload: map[string]any{core.PayloadTextKey: fmt.Sprintf("video %d", i)},
		}
	}
	return points
}

func TestPointIterator_Batches(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		batchSize int
		want      []int
	}{
		{"empty", 0, 10, nil},
		{"exact multiple", 20, 10, []int{10, 10}},
		{"remainder", 25, 10, []int{10, 10, 5}},
		{"single batch", 3, 10, []int{3}},
		{"default size", 150, 0, []int{100, 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := NewPointIterator(&sliceScanner{points: makePoints(tt.total)}, tt.batchSize)

			var sizes []int
			seen := make(map[string]bool)
			err := it.ForEach(context.Background(), func(batch []core.Point) error {
				sizes = append(sizes, len(batch))
				for _, p := range batch {
					seen[p.ID] = true
				}
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, sizes)
			assert.Len(t, seen, tt.total, "every point visited once")
		})
	}
}

func TestPointIterator_StopsOnError(t *testing.T) {
	it := NewPointIterator(&sliceScanner{points: makePoints(30)}, 10)
	boom := errors.New("boom")

	calls := 0
	err := it.ForEach(context.Background(), func([]core.Point) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestPointIterator_ScanError(t *testing.T) {
	boom := errors.New("scan failed")
	it := NewPointIterator(&sliceScanner{err: boom}, 10)

	err := it.ForEach(context.Background(), func([]core.Point) error {
		t.Fatal("fn must not be called")
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestPointIterator_ContextCancelled(t *testing.T) {
	it := NewPointIterator(&sliceScanner{points: makePoints(30)}, 10)

	t.Run("before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := it.ForEach(ctx, func([]core.Point) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("between batches", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		calls := 0
		err := it.ForEach(ctx, func([]core.Point) error {
			calls++
			cancel()
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
