package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/bastiangx/educate/internal/logger"
	"github.com/bastiangx/educate/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	stored  SearchConfiguration
	probe   SearchConfiguration
	written []SearchConfiguration
	err     error
}

func (f *fakeRemote) ReadConfig(_ context.Context, probe SearchConfiguration) (SearchConfiguration, error) {
	f.probe = probe
	return f.stored, f.err
}

func (f *fakeRemote) WriteConfig(_ context.Context, conf SearchConfiguration) error {
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, conf)
	return nil
}

func newState(t *testing.T, remote Remote) (*State, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore()
	return NewState(store, remote, logger.Discard()), store
}

func TestAllowedMethods(t *testing.T) {
	tests := []struct {
		index IndexType
		want  []SearchMethod
	}{
		{IndexDocumentTerm, []SearchMethod{MethodWord2Vec, MethodDoc2Vec, MethodSentenceTransformer}},
		{IndexInverted, []SearchMethod{MethodTFIDF}},
		{IndexBTree, []SearchMethod{}},
		{"Hash", nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.index), func(t *testing.T) {
			assert.Equal(t, tt.want, AllowedMethods(tt.index))
		})
	}

	// callers cannot corrupt the table
	m := AllowedMethods(IndexInverted)
	m[0] = MethodDoc2Vec
	assert.Equal(t, MethodTFIDF, AllowedMethods(IndexInverted)[0])
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(Defaults()))

	conf := Defaults()
	conf.SearchParams.SearchMethod = MethodTFIDF
	assert.ErrorIs(t, Validate(conf), ErrInvalidCombination)

	conf = Defaults()
	conf.SearchParams.SearchMethod = MethodNone
	assert.ErrorIs(t, Validate(conf), ErrInvalidCombination)

	conf = Defaults()
	conf.SearchParams.IndexType = IndexBTree
	assert.ErrorIs(t, Validate(conf), ErrInvalidCombination)
	conf.SearchParams.SearchMethod = MethodNone
	assert.NoError(t, Validate(conf))

	conf = Defaults()
	conf.SearchParams.IndexType = "Hash"
	assert.Error(t, Validate(conf))

	conf = Defaults()
	conf.SearchParams.CrawlDepth = 0
	assert.Error(t, Validate(conf))
}

func TestNormalize(t *testing.T) {
	conf := Defaults()
	assert.False(t, Normalize(&conf))

	conf.SearchParams.IndexType = IndexInverted
	assert.True(t, Normalize(&conf))
	assert.Equal(t, MethodTFIDF, conf.SearchParams.SearchMethod)

	conf = SearchConfiguration{}
	assert.True(t, Normalize(&conf))
	assert.Equal(t, Defaults().SearchParams, conf.SearchParams)
}

func TestSetIndexTypeResetsMethod(t *testing.T) {
	ctx := context.Background()
	s, _ := newState(t, nil)

	require.NoError(t, s.SetSearchMethod(ctx, MethodDoc2Vec))
	require.NoError(t, s.SetIndexType(ctx, IndexInverted))
	assert.Equal(t, MethodTFIDF, s.Snapshot().SearchParams.SearchMethod)

	require.NoError(t, s.SetIndexType(ctx, IndexBTree))
	assert.Empty(t, AllowedMethods(s.Snapshot().SearchParams.IndexType))
	assert.Equal(t, MethodNone, s.Snapshot().SearchParams.SearchMethod)

	require.NoError(t, s.SetIndexType(ctx, IndexDocumentTerm))
	assert.Equal(t, MethodWord2Vec, s.Snapshot().SearchParams.SearchMethod)

	assert.Error(t, s.SetIndexType(ctx, "Hash"))
}

func TestInvalidCombinationIsNeverStored(t *testing.T) {
	ctx := context.Background()
	s, store := newState(t, nil)

	err := s.SetSearchMethod(ctx, MethodTFIDF)
	assert.ErrorIs(t, err, ErrInvalidCombination)
	assert.Equal(t, MethodWord2Vec, s.Snapshot().SearchParams.SearchMethod)

	_, err = store.Get(ctx, StorageKey)
	assert.ErrorIs(t, err, storage.ErrNotFound, "rejected mutation must not persist")

	require.NoError(t, s.SetIndexType(ctx, IndexBTree))
	assert.ErrorIs(t, s.SetSearchMethod(ctx, MethodWord2Vec), ErrInvalidCombination)
}

func TestMutationsPersist(t *testing.T) {
	ctx := context.Background()
	s, store := newState(t, nil)

	require.NoError(t, s.SetCrawlDepth(ctx, 3))
	require.NoError(t, s.SetBrowser(ctx, EngineDuckDuckGo, true))

	var persisted SearchConfiguration
	require.NoError(t, storage.GetValue(ctx, store, StorageKey, &persisted))
	assert.Equal(t, 3, persisted.SearchParams.CrawlDepth)
	assert.True(t, persisted.SearchParams.Browsers[EngineDuckDuckGo])

	// a fresh state over the same storage prefers the persisted value
	restored := NewState(store, nil, logger.Discard())
	require.NoError(t, restored.Load(ctx))
	assert.Equal(t, s.Snapshot(), restored.Snapshot())
}

func TestLoadRepairsPersistedValue(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	bad := Defaults()
	bad.SearchParams.IndexType = IndexInverted
	require.NoError(t, storage.PutValue(ctx, store, StorageKey, bad))

	s := NewState(store, nil, logger.Discard())
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, MethodTFIDF, s.Snapshot().SearchParams.SearchMethod)

	var persisted SearchConfiguration
	require.NoError(t, storage.GetValue(ctx, store, StorageKey, &persisted))
	assert.Equal(t, MethodTFIDF, persisted.SearchParams.SearchMethod)
}

func TestLoadWithoutPersistedValue(t *testing.T) {
	s, _ := newState(t, nil)
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, Defaults(), s.Snapshot())
}

func TestSnapshotIsIsolated(t *testing.T) {
	s, _ := newState(t, nil)
	snap := s.Snapshot()
	snap.SearchParams.Browsers[EngineGoogle] = false
	assert.True(t, s.Snapshot().SearchParams.Browsers[EngineGoogle])
}

func TestSetByField(t *testing.T) {
	ctx := context.Background()
	s, _ := newState(t, nil)

	require.NoError(t, s.Set(ctx, "index_type", "Inverted"))
	require.NoError(t, s.Set(ctx, "number_of_seeds", "12"))
	require.NoError(t, s.Set(ctx, "browsers.DuckDuckGo", "true"))
	require.NoError(t, s.Set(ctx, "query_correction", "false"))
	require.NoError(t, s.Set(ctx, "autosuggest", "0"))

	conf := s.Snapshot()
	assert.Equal(t, IndexInverted, conf.SearchParams.IndexType)
	assert.Equal(t, MethodTFIDF, conf.SearchParams.SearchMethod)
	assert.Equal(t, 12, conf.SearchParams.NumberOfSeeds)
	assert.True(t, conf.SearchParams.Browsers[EngineDuckDuckGo])
	assert.False(t, conf.QueryCorrection)
	assert.False(t, conf.Autosuggest)

	assert.Error(t, s.Set(ctx, "crawl_depth", "deep"))
	assert.Error(t, s.Set(ctx, "crawl_depth", "999"))
	assert.Error(t, s.Set(ctx, "colour", "blue"))
	assert.ErrorIs(t, s.Set(ctx, "search_method", "Doc2Vec-clustering"), ErrInvalidCombination)
}

func TestSaveAndRefresh(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	s, _ := newState(t, remote)

	require.NoError(t, s.SetQuery(ctx, "graph theory"))
	require.NoError(t, s.Save(ctx))
	require.Len(t, remote.written, 1)
	assert.Equal(t, "graph theory", remote.written[0].SearchParams.Q)

	stored := Defaults()
	stored.SearchParams.IndexType = IndexBTree
	stored.SearchParams.SearchMethod = MethodTFIDF
	remote.stored = stored

	require.NoError(t, s.Refresh(ctx))
	assert.Equal(t, "graph theory", remote.probe.SearchParams.Q)
	conf := s.Snapshot()
	assert.Equal(t, IndexBTree, conf.SearchParams.IndexType)
	assert.Equal(t, MethodNone, conf.SearchParams.SearchMethod)
}

func TestRemoteFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{err: errors.New("down")}
	s, _ := newState(t, remote)

	assert.Error(t, s.Save(ctx))
	assert.Error(t, s.Refresh(ctx))
	assert.Equal(t, Defaults(), s.Snapshot())

	noRemote, _ := newState(t, nil)
	assert.Error(t, noRemote.Save(ctx))
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s, store := newState(t, nil)
	require.NoError(t, s.SetCrawlDepth(ctx, 9))
	require.NoError(t, s.Reset(ctx))

	assert.Equal(t, Defaults(), s.Snapshot())
	_, err := store.Get(ctx, StorageKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
