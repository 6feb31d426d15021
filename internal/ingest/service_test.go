package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aimy-copilot/internal/model"
	"aimy-copilot/internal/rag"
)

type memoryDocStore struct {
	docs    map[string]*model.Document
	listErr error
}

func newMemoryDocStore() *memoryDocStore {
	return &memoryDocStore{docs: make(map[string]*model.Document)}
}

func (m *memoryDocStore) Upsert(ctx context.Context, doc *model.Document) error {
	copied := *doc
	m.docs[doc.ID] = &copied
	return nil
}

func (m *memoryDocStore) Delete(ctx context.Context, id string) error {
	delete(m.docs, id)
	return nil
}

func (m *memoryDocStore) GetByID(ctx context.Context, id string) (*model.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, nil
	}
	return doc, nil
}

func (m *memoryDocStore) List(ctx context.Context, filters rag.Filters) ([]model.Document, error) {
	var out []model.Document
	for _, d := range m.docs {
		out = append(out, *d)
	}
	return out, nil
}

func (m *memoryDocStore) ListWithEmbeddings(ctx context.Context) ([]model.Document, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []model.Document
	for _, d := range m.docs {
		if d.Embedding != "" {
			out = append(out, *d)
		}
	}
	return out, nil
}

type recordingIndex struct {
	embedErr  error
	upsertErr error
	entries   map[string][]float32
}

func newRecordingIndex() *recordingIndex {
	return &recordingIndex{entries: make(map[string][]float32)}
}

func (r *recordingIndex) Embed(ctx context.Context, text string) ([]float32, error) {
	if r.embedErr != nil {
		return nil, r.embedErr
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (r *recordingIndex) SimilaritySearch(ctx context.Context, vector []float32, opts rag.SearchOptions) ([]rag.ScoredDoc, error) {
	return nil, nil
}

func (r *recordingIndex) Upsert(ctx context.Context, doc model.SourceDocument, vector []float32) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.entries[doc.ID] = vector
	return nil
}

func (r *recordingIndex) Delete(ctx context.Context, id string) error {
	delete(r.entries, id)
	return nil
}

func newTestService() (*Service, *memoryDocStore, *recordingIndex) {
	store := newMemoryDocStore()
	index := newRecordingIndex()
	return NewService(store, index, zap.NewNop()), store, index
}

func TestAddDocumentStoresAndIndexes(t *testing.T) {
	svc, store, index := newTestService()

	doc, err := svc.AddDocument(context.Background(), DocumentInput{
		ID:           "doc-1",
		Title:        "Solar farm prospectus",
		Content:      "The solar farm generates stable monthly yield.",
		DocumentType: "asset_doc",
		AssetID:      "SOLAR-001",
	})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.False(t, doc.LastUpdated.IsZero())
	assert.NotEmpty(t, doc.Embedding)

	stored, ok := store.docs["doc-1"]
	require.True(t, ok)
	assert.Equal(t, "Solar farm prospectus", stored.Title)
	assert.Contains(t, index.entries, "doc-1")
}

func TestAddDocumentGeneratesID(t *testing.T) {
	svc, _, _ := newTestService()

	doc, err := svc.AddDocument(context.Background(), DocumentInput{
		Title:   "Untitled",
		Content: "some content",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
}

func TestAddDocumentIdempotentOnID(t *testing.T) {
	svc, store, index := newTestService()

	_, err := svc.AddDocument(context.Background(), DocumentInput{
		ID: "doc-1", Title: "v1", Content: "first version",
	})
	require.NoError(t, err)

	_, err = svc.AddDocument(context.Background(), DocumentInput{
		ID: "doc-1", Title: "v2", Content: "second version",
	})
	require.NoError(t, err)

	require.Len(t, store.docs, 1)
	assert.Equal(t, "v2", store.docs["doc-1"].Title)
	assert.Len(t, index.entries, 1)
}

func TestAddDocumentRejectsEmptyContent(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.AddDocument(context.Background(), DocumentInput{ID: "doc-1", Content: "   "})
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestAddDocumentEmbedFailure(t *testing.T) {
	svc, store, index := newTestService()
	index.embedErr = errors.New("embedding service down")

	_, err := svc.AddDocument(context.Background(), DocumentInput{ID: "doc-1", Content: "content"})
	require.Error(t, err)
	assert.Empty(t, store.docs)
}

func TestUpdateDocumentRequiresExisting(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.UpdateDocument(context.Background(), DocumentInput{ID: "ghost", Content: "content"})
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = svc.UpdateDocument(context.Background(), DocumentInput{Content: "content"})
	assert.Error(t, err)
}

func TestUpdateDocumentReplacesExisting(t *testing.T) {
	svc, store, _ := newTestService()

	_, err := svc.AddDocument(context.Background(), DocumentInput{ID: "doc-1", Title: "old", Content: "old text"})
	require.NoError(t, err)

	updated, err := svc.UpdateDocument(context.Background(), DocumentInput{ID: "doc-1", Title: "new", Content: "new text"})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, "new", store.docs["doc-1"].Title)
}

func TestRemoveDocument(t *testing.T) {
	svc, store, index := newTestService()

	_, err := svc.AddDocument(context.Background(), DocumentInput{ID: "doc-1", Content: "content"})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveDocument(context.Background(), "doc-1"))
	assert.Empty(t, store.docs)
	assert.Empty(t, index.entries)

	// Removing an unknown id is a no-op.
	assert.NoError(t, svc.RemoveDocument(context.Background(), "doc-1"))

	assert.Error(t, svc.RemoveDocument(context.Background(), ""))
}

func TestGetDocument(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.AddDocument(context.Background(), DocumentInput{ID: "doc-1", Content: "content"})
	require.NoError(t, err)

	doc, err := svc.GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)

	_, err = svc.GetDocument(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestWarmIndexSkipsUnreadableEmbeddings(t *testing.T) {
	svc, store, index := newTestService()

	good := &model.Document{ID: "good", Title: "ok", Content: "text", LastUpdated: time.Now()}
	good.SetEmbedding([]float32{0.5, 0.5})
	store.docs["good"] = good

	bad := &model.Document{ID: "bad", Title: "broken", Content: "text", Embedding: "not-json"}
	store.docs["bad"] = bad

	loaded, err := svc.WarmIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)
	assert.Contains(t, index.entries, "good")
	assert.NotContains(t, index.entries, "bad")
}

func TestWarmIndexStoreFailure(t *testing.T) {
	svc, store, _ := newTestService()
	store.listErr = errors.New("db down")

	_, err := svc.WarmIndex(context.Background())
	assert.Error(t, err)
}
