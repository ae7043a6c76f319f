package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/poiesic/vidsearch/ai"
	"github.com/poiesic/vidsearch/ai/mock"
	"github.com/poiesic/vidsearch/core"
	"github.com/poiesic/vidsearch/embedding"
	"github.com/poiesic/vidsearch/storage"
	"github.com/poiesic/vidsearch/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCollection = "videos"
	testDims       = 8
)

func newPipeline(t *testing.T, embedder ai.Embedder) *embedding.Pipeline {
	t.Helper()
	p, err := embedding.NewPipeline(embedder, "test-model", embedding.WithDimensions(testDims))
	require.NoError(t, err)
	return p
}

func memoryOpener(string) (storage.VectorStore, error) {
	return badger.NewMemoryStore()
}

func openTestIndex(t *testing.T, embedder ai.Embedder, opts ...Option) *Index {
	t.Helper()
	opts = append([]Option{WithOpener(memoryOpener)}, opts...)
	idx, err := Open(context.Background(), filepath.Join(t.TempDir(), "vector_data"), testCollection, testDims, newPipeline(t, embedder), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func video(checksum, text string) core.Document {
	return core.Document{
		Text: text,
		Metadata: map[string]any{
			"checksum": checksum,
			"title":    "video " + checksum,
		},
	}
}

// failingStore wraps a real store and fails every upsert while fail is set.
type failingStore struct {
	storage.VectorStore
	fail    bool
	upserts atomic.Int32
}

func (s *failingStore) Upsert(ctx context.Context, collection string, points ...core.Point) error {
	s.upserts.Add(1)
	if s.fail {
		return errors.New("corrupted segment")
	}
	return s.VectorStore.Upsert(ctx, collection, points...)
}

// countingOpener opens real Badger stores and hands them out wrapped.
type countingOpener struct {
	mu      sync.Mutex
	failFor int
	stores  []*failingStore
}

func (o *countingOpener) open(path string) (storage.VectorStore, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	inner, err := badger.Open(path)
	if err != nil {
		return nil, err
	}
	s := &failingStore{VectorStore: inner, fail: len(o.stores) < o.failFor}
	o.stores = append(o.stores, s)
	return s, nil
}

func (o *countingOpener) opens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.stores)
}

func TestOpen_Validation(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, mock.NewMockEmbedder())
	dir := t.TempDir()

	tests := []struct {
		name     string
		embedder Embedder
		path     string
		coll     string
		size     int
		wantErr  error
	}{
		{"nil embedder", nil, dir, testCollection, testDims, ErrEmbedderRequired},
		{"missing path", p, "", testCollection, testDims, core.ErrConfiguration},
		{"missing collection", p, dir, "", testDims, core.ErrConfiguration},
		{"zero dimension", p, dir, testCollection, 0, core.ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(ctx, tt.path, tt.coll, tt.size, tt.embedder, WithOpener(memoryOpener))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEnsureCollection(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "vector_data")
	p := newPipeline(t, mock.NewMockEmbedder())

	idx, err := Open(ctx, dir, testCollection, testDims, p)
	require.NoError(t, err)
	require.NoError(t, idx.EnsureCollection(ctx), "idempotent")
	require.NoError(t, idx.AddDocuments(ctx, []core.Document{video("c1", "a cat")}))
	require.NoError(t, idx.Close())

	t.Run("reopen keeps points", func(t *testing.T) {
		idx, err := Open(ctx, dir, testCollection, testDims, p)
		require.NoError(t, err)
		defer idx.Close()

		count, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Equal(t, core.Collection{Name: testCollection, VectorSize: testDims, Distance: core.DistanceCosine}, idx.Collection())
	})

	t.Run("different size is a configuration error", func(t *testing.T) {
		_, err := Open(ctx, dir, testCollection, testDims*2, p)
		assert.ErrorIs(t, err, core.ErrConfiguration)
	})
}

func TestAddDocuments_Empty(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	idx := openTestIndex(t, embedder)

	require.NoError(t, idx.AddDocuments(context.Background(), nil))
	assert.Equal(t, 0, embedder.CallCount())
}

func TestAddDocuments_SingleEmbeddingCall(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	idx := openTestIndex(t, embedder)
	ctx := context.Background()

	docs := []core.Document{video("c1", "a cat"), video("c2", "a dog"), video("c3", "a bird")}
	require.NoError(t, idx.AddDocuments(ctx, docs))

	calls := embedder.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"a cat", "a dog", "a bird"}, calls[0].Texts)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestAddDocuments_Idempotent(t *testing.T) {
	idx := openTestIndex(t, mock.NewMockEmbedder())
	ctx := context.Background()

	docs := []core.Document{video("c1", "a cat"), video("c2", "a dog")}
	require.NoError(t, idx.AddDocuments(ctx, docs))
	require.NoError(t, idx.AddDocuments(ctx, docs))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	t.Run("same checksum replaces the point", func(t *testing.T) {
		require.NoError(t, idx.AddDocuments(ctx, []core.Document{video("c1", "a sleeping cat")}))

		count, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		var texts []string
		require.NoError(t, idx.Scan(ctx, func(p core.Point) error {
			if p.ID == core.PointIDFromContent("c1") {
				texts = append(texts, p.Payload["text"].(string))
			}
			return nil
		}))
		assert.Equal(t, []string{"a sleeping cat"}, texts)
	})

	t.Run("documents without checksum are keyed by text", func(t *testing.T) {
		plain := []core.Document{{Text: "untracked clip"}}
		require.NoError(t, idx.AddDocuments(ctx, plain))
		require.NoError(t, idx.AddDocuments(ctx, plain))

		count, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})
}

func TestAddDocuments_Validation(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	idx := openTestIndex(t, embedder)

	err := idx.AddDocuments(context.Background(), []core.Document{video("c1", "ok"), {Text: ""}})
	assert.ErrorIs(t, err, core.ErrEmptyText)
	assert.Equal(t, 0, embedder.CallCount())
}

func TestAddDocuments_EmbeddingErrorDoesNotRebuild(t *testing.T) {
	opener := &countingOpener{}
	backendErr := errors.New("invalid api key")
	embedder := mock.NewMockEmbedder().WithEmbedTextsFunc(
		func(ctx context.Context, texts []string, opts ai.EmbedOptions) ([]core.Vector, error) {
			return nil, backendErr
		})

	dir := filepath.Join(t.TempDir(), "vector_data")
	idx, err := Open(context.Background(), dir, testCollection, testDims, newPipeline(t, embedder), WithOpener(opener.open))
	require.NoError(t, err)
	defer idx.Close()

	err = idx.AddDocuments(context.Background(), []core.Document{video("c1", "a cat")})
	assert.ErrorIs(t, err, backendErr)
	assert.NotErrorIs(t, err, storage.ErrStoreCorruption)
	assert.Equal(t, 1, opener.opens())
	assert.Zero(t, opener.stores[0].upserts.Load())
}

func TestAddDocuments_WrongDimensionIsNotAStoreFailure(t *testing.T) {
	opener := &countingOpener{}
	embedder := mock.NewMockEmbedder()
	p, err := embedding.NewPipeline(embedder, "test-model")
	require.NoError(t, err)

	idx, err := Open(context.Background(), filepath.Join(t.TempDir(), "vector_data"), testCollection, 3, p, WithOpener(opener.open))
	require.NoError(t, err)
	defer idx.Close()

	err = idx.AddDocuments(context.Background(), []core.Document{video("c1", "a cat")})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	assert.Equal(t, 1, opener.opens())
}

func TestAddDocuments_CorruptionRecovery(t *testing.T) {
	ctx := context.Background()
	opener := &countingOpener{failFor: 1}
	dir := filepath.Join(t.TempDir(), "vector_data")

	idx, err := Open(ctx, dir, testCollection, testDims, newPipeline(t, mock.NewMockEmbedder()), WithOpener(opener.open))
	require.NoError(t, err)
	defer idx.Close()

	marker := filepath.Join(dir, "stale-marker")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0o644))

	require.NoError(t, idx.AddDocuments(ctx, []core.Document{video("c1", "a cat"), video("c2", "a dog")}))

	assert.Equal(t, 2, opener.opens(), "store reopened once")
	assert.EqualValues(t, 1, opener.stores[0].upserts.Load())
	assert.EqualValues(t, 1, opener.stores[1].upserts.Load(), "add retried exactly once")
	assert.NoFileExists(t, marker, "old directory removed")

	collections, err := opener.stores[1].Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Collection{{Name: testCollection, VectorSize: testDims, Distance: core.DistanceCosine}}, collections)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAddDocuments_RebuildHook(t *testing.T) {
	tests := []struct {
		name    string
		failFor int
		wantErr bool
		want    int32
	}{
		{"healthy store", 0, false, 0},
		{"recovered", 1, false, 1},
		{"failed after rebuild", 2, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			opener := &countingOpener{failFor: tt.failFor}
			var rebuilds atomic.Int32

			idx, err := Open(ctx, filepath.Join(t.TempDir(), "vector_data"), testCollection, testDims,
				newPipeline(t, mock.NewMockEmbedder()),
				WithOpener(opener.open),
				WithRebuildHook(func() { rebuilds.Add(1) }))
			require.NoError(t, err)
			defer idx.Close()

			err = idx.AddDocuments(ctx, []core.Document{video("c1", "a cat")})
			if tt.wantErr {
				assert.ErrorIs(t, err, storage.ErrStoreCorruption)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, rebuilds.Load())
		})
	}
}

func TestAddDocuments_SecondFailureIsCorruption(t *testing.T) {
	ctx := context.Background()
	opener := &countingOpener{failFor: 2}

	idx, err := Open(ctx, filepath.Join(t.TempDir(), "vector_data"), testCollection, testDims, newPipeline(t, mock.NewMockEmbedder()), WithOpener(opener.open))
	require.NoError(t, err)
	defer idx.Close()

	err = idx.AddDocuments(ctx, []core.Document{video("c1", "a cat")})
	assert.ErrorIs(t, err, storage.ErrStoreCorruption)
	assert.Equal(t, 2, opener.opens(), "only one rebuild")
}

func TestAddDocuments_CanceledContextDoesNotRebuild(t *testing.T) {
	opener := &countingOpener{failFor: 1}
	embedder := mock.NewMockEmbedder()

	idx, err := Open(context.Background(), filepath.Join(t.TempDir(), "vector_data"), testCollection, testDims, newPipeline(t, embedder), WithOpener(opener.open))
	require.NoError(t, err)
	defer idx.Close()

	ctx, cancel := context.WithCancel(context.Background())
	embedder.WithEmbedTextsFunc(func(_ context.Context, texts []string, opts ai.EmbedOptions) ([]core.Vector, error) {
		cancel()
		return []core.Vector{mock.DeterministicVector(texts[0], testDims)}, nil
	})

	err = idx.AddDocuments(ctx, []core.Document{video("c1", "a cat")})
	assert.Error(t, err)
	assert.Equal(t, 1, opener.opens())
}

func TestSearch(t *testing.T) {
	idx := openTestIndex(t, mock.NewMockEmbedder())
	ctx := context.Background()

	require.NoError(t, idx.AddDocuments(ctx, []core.Document{
		video("c1", "a cat"),
		video("c2", "a dog"),
		video("c3", "a bird"),
	}))

	results, err := idx.Search(ctx, "a dog", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "a dog", results[0].Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
	assert.Equal(t, "c2", results[0].Metadata["checksum"])
	assert.Equal(t, "video c2", results[0].Metadata["title"])
	assert.NotContains(t, results[0].Metadata, "text")
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestSearch_EmptyIndex(t *testing.T) {
	idx := openTestIndex(t, mock.NewMockEmbedder())

	results, err := idx.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestClosedIndex(t *testing.T) {
	idx := openTestIndex(t, mock.NewMockEmbedder())
	ctx := context.Background()
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	_, err := idx.Search(ctx, "a cat", 1)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	_, err = idx.Count(ctx)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.ErrorIs(t, idx.Persist(ctx), storage.ErrStorageClosed)
	assert.ErrorIs(t, idx.AddDocuments(ctx, []core.Document{video("c1", "a cat")}), storage.ErrStorageClosed)
	assert.ErrorIs(t, idx.Reset(ctx), storage.ErrStorageClosed)
}

func TestAddDocuments_ClosedIndexKeepsData(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "vector_data")
	opener := &countingOpener{}

	idx, err := Open(ctx, dir, testCollection, testDims, newPipeline(t, mock.NewMockEmbedder()), WithOpener(opener.open))
	require.NoError(t, err)
	require.NoError(t, idx.AddDocuments(ctx, []core.Document{video("c1", "a cat"), video("c2", "a dog")}))
	require.NoError(t, idx.Close())

	err = idx.AddDocuments(ctx, []core.Document{video("c3", "a bird")})
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.Equal(t, 1, opener.opens(), "closed index is not rebuilt")

	idx, err = Open(ctx, dir, testCollection, testDims, newPipeline(t, mock.NewMockEmbedder()), WithOpener(opener.open))
	require.NoError(t, err)
	defer idx.Close()

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPersist(t *testing.T) {
	idx := openTestIndex(t, mock.NewMockEmbedder())
	assert.NoError(t, idx.Persist(context.Background()))
}

func TestUpsertPoints(t *testing.T) {
	idx := openTestIndex(t, mock.NewMockEmbedder())
	ctx := context.Background()
	require.NoError(t, idx.AddDocuments(ctx, []core.Document{video("c1", "a cat")}))

	var points []core.Point
	require.NoError(t, idx.Scan(ctx, func(p core.Point) error {
		p.Vector = mock.DeterministicVector("replacement", testDims)
		points = append(points, p)
		return nil
	}))
	require.NoError(t, idx.UpsertPoints(ctx, points))

	results, err := idx.Search(ctx, "replacement", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)

	err = idx.UpsertPoints(ctx, []core.Point{{ID: "x", Vector: core.Vector{1}}})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestConcurrentAddAndSearch(t *testing.T) {
	idx := openTestIndex(t, mock.NewMockEmbedder())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			doc := video(fmt.Sprintf("c%d", i), fmt.Sprintf("clip number %d", i))
			assert.NoError(t, idx.AddDocuments(ctx, []core.Document{doc}))
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := idx.Search(ctx, fmt.Sprintf("clip number %d", i), 3)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, count)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	idx := openTestIndex(t, mock.NewMockEmbedder())
	require.NoError(t, idx.AddDocuments(ctx, []core.Document{video("a", "first"), video("b", "second")}))

	require.NoError(t, idx.Reset(ctx))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, core.Collection{Name: testCollection, VectorSize: testDims, Distance: core.DistanceCosine}, idx.Collection())

	require.NoError(t, idx.AddDocuments(ctx, []core.Document{video("a", "first")}))
	count, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, idx.Close())
	assert.ErrorIs(t, idx.Reset(ctx), storage.ErrStorageClosed)
}
