package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"aimy-copilot/internal/ingest"
	"aimy-copilot/internal/rag"
	"aimy-copilot/internal/transport/http/response"
)

const maxPDFSize = 10 << 20

type DocumentHandler struct {
	ingest *ingest.Service
}

func NewDocumentHandler(ingestService *ingest.Service) *DocumentHandler {
	return &DocumentHandler{ingest: ingestService}
}

type DocumentRequest struct {
	ID           string `json:"id" binding:"max=64"`
	Title        string `json:"title" binding:"required,max=255"`
	Content      string `json:"content" binding:"required"`
	URL          string `json:"url" binding:"max=512"`
	Type         string `json:"type" binding:"max=32"`
	AssetID      string `json:"asset_id" binding:"max=64"`
	PortfolioID  string `json:"portfolio_id" binding:"max=64"`
	DocumentType string `json:"document_type" binding:"max=64"`
}

func (r DocumentRequest) toInput() ingest.DocumentInput {
	return ingest.DocumentInput{
		ID:           r.ID,
		Title:        r.Title,
		Content:      r.Content,
		URL:          r.URL,
		Type:         r.Type,
		AssetID:      r.AssetID,
		PortfolioID:  r.PortfolioID,
		DocumentType: r.DocumentType,
	}
}

func (h *DocumentHandler) Create(c *gin.Context) {
	var req DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	doc, err := h.ingest.AddDocument(c.Request.Context(), req.toInput())
	if err != nil {
		if errors.Is(err, ingest.ErrEmptyContent) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest document failed")
		return
	}
	response.OK(c, doc)
}

// UploadPDF ingests a document whose content is extracted from an uploaded
// PDF file.
func (h *DocumentHandler) UploadPDF(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxPDFSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 10MB)")
		return
	}
	if !strings.HasSuffix(strings.ToLower(file.Filename), ".pdf") {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "only PDF files are allowed")
		return
	}

	reader, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer reader.Close()

	title := c.PostForm("title")
	if title == "" {
		title = file.Filename
	}
	input := ingest.DocumentInput{
		ID:           c.PostForm("id"),
		Title:        title,
		URL:          c.PostForm("url"),
		Type:         c.PostForm("type"),
		AssetID:      c.PostForm("asset_id"),
		PortfolioID:  c.PostForm("portfolio_id"),
		DocumentType: c.PostForm("document_type"),
		PDF:          reader,
	}

	doc, err := h.ingest.AddDocument(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, ingest.ErrEmptyContent) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "PDF contains no extractable text")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest document failed")
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Update(c *gin.Context) {
	var req DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	req.ID = c.Param("id")
	if req.ID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing document id")
		return
	}

	doc, err := h.ingest.UpdateDocument(c.Request.Context(), req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "document not found")
		case errors.Is(err, ingest.ErrEmptyContent):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "update document failed")
		}
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing document id")
		return
	}
	if err := h.ingest.RemoveDocument(c.Request.Context(), id); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete document failed")
		return
	}
	response.OK(c, gin.H{"deleted_document_id": id})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing document id")
		return
	}
	doc, err := h.ingest.GetDocument(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ingest.ErrDocumentNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "document not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get document failed")
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	filters := rag.Filters{
		AssetID:      c.Query("asset_id"),
		PortfolioID:  c.Query("portfolio_id"),
		DocumentType: c.Query("document_type"),
	}
	docs, err := h.ingest.ListDocuments(c.Request.Context(), filters)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, docs)
}
