package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"aimy-copilot/internal/model"
	"aimy-copilot/internal/rag"
)

// DocumentRepository persists source documents and backs the lexical side of
// retrieval. It implements rag.DocumentStore.
type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const searchCandidateLimit = 50

// Search returns candidate documents whose title or content contains any
// query token. Scoring happens in the retriever, not here.
func (r *DocumentRepository) Search(ctx context.Context, query string, filters rag.Filters) ([]model.Document, error) {
	q := r.applyFilters(r.db.WithContext(ctx), filters)

	tokens := searchTokens(query)
	if len(tokens) > 0 {
		sub := r.db.Where("1 = 0")
		for _, token := range tokens {
			like := "%" + token + "%"
			sub = sub.Or("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", like, like)
		}
		q = q.Where(sub)
	}

	var docs []model.Document
	if err := q.Order("last_updated DESC").Limit(searchCandidateLimit).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("search documents failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) GetMetadata(ctx context.Context, id string) (*model.DocumentMetadata, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).
		Select("id", "asset_id", "portfolio_id", "document_type", "last_updated").
		Where("id = ?", id).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document metadata failed: %w", err)
	}
	meta := doc.Metadata()
	return &meta, nil
}

func (r *DocumentRepository) List(ctx context.Context, filters rag.Filters) ([]model.Document, error) {
	var docs []model.Document
	q := r.applyFilters(r.db.WithContext(ctx), filters)
	if err := q.Order("last_updated DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

// Upsert writes the document row, replacing any existing row with the same
// id.
func (r *DocumentRepository) Upsert(ctx context.Context, doc *model.Document) error {
	if err := r.db.WithContext(ctx).Save(doc).Error; err != nil {
		return fmt.Errorf("upsert document failed: %w", err)
	}
	return nil
}

// Delete removes the document row. Deleting an unknown id is a no-op.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Document{}).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}

// ListWithEmbeddings returns every document that carries a stored embedding,
// used to rebuild the vector index on startup.
func (r *DocumentRepository) ListWithEmbeddings(ctx context.Context) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.WithContext(ctx).
		Where("embedding IS NOT NULL AND embedding != '' AND embedding != '[]'").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("list documents with embeddings failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) applyFilters(q *gorm.DB, filters rag.Filters) *gorm.DB {
	if filters.AssetID != "" {
		q = q.Where("asset_id = ?", filters.AssetID)
	}
	if filters.PortfolioID != "" {
		q = q.Where("portfolio_id = ?", filters.PortfolioID)
	}
	if filters.DocumentType != "" {
		q = q.Where("document_type = ?", filters.DocumentType)
	}
	if !filters.UpdatedAfter.IsZero() {
		q = q.Where("last_updated >= ?", filters.UpdatedAfter)
	}
	return q
}

func searchTokens(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"'()")
		if len(f) < 3 {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
