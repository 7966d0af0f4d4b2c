package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"docquery/internal/domain"
)

type ingestRequest struct {
	DocumentID string   `json:"document_id"` // optional; generated when empty
	Name       string   `json:"name"`
	Text       string   `json:"text"`    // chunked server-side when set
	Chunks     []string `json:"chunks"`  // pre-chunked input, used as-is
	AddToSet   bool     `json:"collect"` // also register for multi-document queries
}

type ingestResponse struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	ChunkCount int    `json:"chunk_count"`
	Status     string `json:"status"`
}

type queryRequest struct {
	Query      string `json:"query"`
	DocumentID string `json:"document_id"`
	K          int    `json:"k"`
}

type multiQueryRequest struct {
	Query       string   `json:"query"`
	DocumentIDs []string `json:"document_ids"`
	KTotal      int      `json:"k_total"`
}

type queryResponse struct {
	Query           string               `json:"query"`
	Sources         []domain.QueryResult `json:"sources"`
	ChunksRetrieved int                  `json:"chunks_retrieved"`
}

type documentsResponse struct {
	TotalDocuments int                `json:"total_documents"`
	Documents      []domain.IndexMeta `json:"documents"`
}

type collectionResponse struct {
	TotalMembers int                      `json:"total_members"`
	Members      []domain.CollectionEntry `json:"members"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	chunks := req.Chunks
	if len(chunks) == 0 && req.Text != "" {
		for _, c := range s.chunker.Chunk(req.Text) {
			chunks = append(chunks, c.Text)
		}
	}

	id := req.DocumentID
	if id == "" {
		id = uuid.NewString()
	}
	name := req.Name
	if name == "" {
		name = id
	}

	count, err := s.svc.BuildIndex(r.Context(), id, name, chunks)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if req.AddToSet {
		if err := s.svc.AddToCollection(id); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, ingestResponse{
		DocumentID: id,
		Name:       name,
		ChunkCount: count,
		Status:     "indexed",
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results, err := s.svc.SingleQuery(r.Context(), req.Query, req.DocumentID, req.K)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Query:           req.Query,
		Sources:         results,
		ChunksRetrieved: len(results),
	})
}

func (s *Server) handleMultiQuery(w http.ResponseWriter, r *http.Request) {
	var req multiQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results, err := s.svc.MultiQuery(r.Context(), req.Query, req.DocumentIDs, req.KTotal)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Query:           req.Query,
		Sources:         results,
		ChunksRetrieved: len(results),
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	metas, err := s.svc.ListDocuments()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentsResponse{
		TotalDocuments: len(metas),
		Documents:      metas,
	})
}

func (s *Server) handleDocumentInfo(w http.ResponseWriter, r *http.Request) {
	meta, err := s.svc.IndexInfo(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.DeleteIndex(id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"document_id": id, "status": "deleted"})
}

func (s *Server) handleListCollection(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.ListCollection()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collectionResponse{
		TotalMembers: len(entries),
		Members:      entries,
	})
}

func (s *Server) handleAddToCollection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.AddToCollection(id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"document_id": id, "status": "added"})
}

func (s *Server) handleRemoveFromCollection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.RemoveFromCollection(id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"document_id": id, "status": "removed"})
}

// writeDomainError maps the typed error taxonomy onto HTTP statuses. The
// error text is passed through so the orchestration layer can decide user
// messaging.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnknownDocument):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrEmptyInput), errors.Is(err, domain.ErrInvalidK),
		errors.Is(err, domain.ErrNotIndexed), errors.Is(err, domain.ErrEmptyCollection),
		errors.Is(err, domain.ErrNotBuilt):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrModelMismatch):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrCorruptIndex):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrProvider):
		status = http.StatusBadGateway
	}
	httpError(w, status, err.Error())
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
