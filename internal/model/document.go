package model

import (
	"encoding/json"
	"time"
)

// Document is the persisted form of a retrievable source document.
// Embedding is stored as a JSON array of float32 so the in-memory vector
// index can be rebuilt on startup without re-embedding.
type Document struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	URL          string    `gorm:"size:512" json:"url"`
	Type         string    `gorm:"size:32;index" json:"type"`
	AssetID      string    `gorm:"size:64;index" json:"asset_id,omitempty"`
	PortfolioID  string    `gorm:"size:64;index" json:"portfolio_id,omitempty"`
	DocumentType string    `gorm:"size:64" json:"document_type,omitempty"`
	Embedding    string    `gorm:"type:text" json:"-"`
	LastUpdated  time.Time `gorm:"index" json:"last_updated"`
	CreatedAt    time.Time `json:"created_at"`
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (d *Document) EmbeddingVector() []float32 {
	if d.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(d.Embedding), &v)
	return v
}

// SetEmbedding stores the embedding as JSON.
func (d *Document) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		d.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	d.Embedding = string(b)
}

// Metadata projects the persisted fields into the retrieval metadata shape.
func (d *Document) Metadata() DocumentMetadata {
	return DocumentMetadata{
		AssetID:      d.AssetID,
		PortfolioID:  d.PortfolioID,
		DocumentType: d.DocumentType,
		LastUpdated:  d.LastUpdated,
	}
}
