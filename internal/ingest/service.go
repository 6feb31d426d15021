// Package ingest owns document maintenance: adding, updating and removing
// the source documents retrieval works over. Each write updates the
// persisted row and the vector index together and is idempotent on id.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aimy-copilot/internal/model"
	"aimy-copilot/internal/pkg/pdfextract"
	"aimy-copilot/internal/rag"
)

var (
	ErrEmptyContent     = errors.New("document content is empty")
	ErrDocumentNotFound = errors.New("document not found")
)

// DocumentStore is the persistence contract ingestion writes through.
type DocumentStore interface {
	Upsert(ctx context.Context, doc *model.Document) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*model.Document, error)
	List(ctx context.Context, filters rag.Filters) ([]model.Document, error)
	ListWithEmbeddings(ctx context.Context) ([]model.Document, error)
}

type Service struct {
	docs  DocumentStore
	index rag.VectorIndex
	log   *zap.Logger
}

func NewService(docs DocumentStore, index rag.VectorIndex, log *zap.Logger) *Service {
	return &Service{docs: docs, index: index, log: log}
}

// DocumentInput describes one document to add or update. Content may come
// from the field directly or be extracted from PDF when a reader is given.
type DocumentInput struct {
	ID           string
	Title        string
	Content      string
	URL          string
	Type         string
	AssetID      string
	PortfolioID  string
	DocumentType string
	PDF          io.Reader
}

// AddDocument embeds and stores a document. Calling it again with the same
// id replaces the previous version.
func (s *Service) AddDocument(ctx context.Context, input DocumentInput) (*model.Document, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" && input.PDF != nil {
		extracted, err := pdfextract.ExtractText(input.PDF)
		if err != nil {
			return nil, fmt.Errorf("extract pdf text failed: %w", err)
		}
		content = strings.TrimSpace(extracted)
	}
	if content == "" {
		return nil, ErrEmptyContent
	}

	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}

	vector, err := s.index.Embed(ctx, input.Title+"\n"+content)
	if err != nil {
		return nil, fmt.Errorf("embed document failed: %w", err)
	}

	doc := &model.Document{
		ID:           id,
		Title:        input.Title,
		Content:      content,
		URL:          input.URL,
		Type:         input.Type,
		AssetID:      input.AssetID,
		PortfolioID:  input.PortfolioID,
		DocumentType: input.DocumentType,
		LastUpdated:  time.Now().UTC(),
	}
	doc.SetEmbedding(vector)

	if err := s.docs.Upsert(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.index.Upsert(ctx, toSourceDocument(doc), vector); err != nil {
		return nil, fmt.Errorf("index document failed: %w", err)
	}

	s.log.Info("document ingested",
		zap.String("doc_id", id),
		zap.String("title", input.Title),
		zap.Int("content_len", len(content)))
	return doc, nil
}

// UpdateDocument replaces an existing document. Unlike AddDocument it fails
// when the id is unknown.
func (s *Service) UpdateDocument(ctx context.Context, input DocumentInput) (*model.Document, error) {
	if input.ID == "" {
		return nil, fmt.Errorf("document id is required for update")
	}
	existing, err := s.docs.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrDocumentNotFound
	}
	return s.AddDocument(ctx, input)
}

// RemoveDocument deletes a document from the store and the index. Removing
// an unknown id is a no-op.
func (s *Service) RemoveDocument(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("document id is required")
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.index.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove document from index failed: %w", err)
	}
	s.log.Info("document removed", zap.String("doc_id", id))
	return nil
}

// GetDocument returns a stored document or ErrDocumentNotFound.
func (s *Service) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// ListDocuments returns stored documents matching the filters.
func (s *Service) ListDocuments(ctx context.Context, filters rag.Filters) ([]model.Document, error) {
	return s.docs.List(ctx, filters)
}

// WarmIndex rebuilds the vector index from stored embeddings. Documents
// whose embedding fails to parse are skipped, not fatal.
func (s *Service) WarmIndex(ctx context.Context) (int, error) {
	docs, err := s.docs.ListWithEmbeddings(ctx)
	if err != nil {
		return 0, err
	}

	loaded := 0
	for i := range docs {
		vector := docs[i].EmbeddingVector()
		if len(vector) == 0 {
			s.log.Warn("skipping document with unreadable embedding", zap.String("doc_id", docs[i].ID))
			continue
		}
		if err := s.index.Upsert(ctx, toSourceDocument(&docs[i]), vector); err != nil {
			s.log.Warn("index warm load failed for document",
				zap.String("doc_id", docs[i].ID),
				zap.Error(err))
			continue
		}
		loaded++
	}
	return loaded, nil
}

func toSourceDocument(doc *model.Document) model.SourceDocument {
	return model.SourceDocument{
		ID:       doc.ID,
		Title:    doc.Title,
		Content:  doc.Content,
		URL:      doc.URL,
		Type:     model.DocumentType(doc.Type),
		Metadata: doc.Metadata(),
	}
}
