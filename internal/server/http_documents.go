package server

import (
	"fmt"
	"net/http"

	"cvstudio/internal/formatters"
	"cvstudio/internal/store"
	"cvstudio/internal/types"
)

// UpdateDocumentRequest edits a stored document. Nil fields are left alone.
type UpdateDocumentRequest struct {
	Title   *string         `json:"title,omitempty"`
	Content *types.Document `json:"content,omitempty"`
}

// listDocumentsHandler returns the user's documents newest-first, without
// content payloads
func (s *Server) listDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := s.Store.List(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, docs)
}

// getDocumentHandler returns one stored document with its full content
func (s *Server) getDocumentHandler(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Store.Get(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, doc)
}

// updateDocumentHandler applies title and content edits to a stored document
func (s *Server) updateDocumentHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateDocumentRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	userID := userIDFromContext(r.Context())
	doc, err := s.Store.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return
	}

	if req.Title != nil {
		doc.Title = *req.Title
	}
	if req.Content != nil {
		doc.Content = *req.Content
	}

	if err := s.Store.Update(r.Context(), doc); err != nil {
		writeAppError(w, err)
		return
	}

	s.Store.Track(r.Context(), userID, "document_updated")
	writeJSONResponse(w, http.StatusOK, doc)
}

// exportDocumentHandler renders a stored document for download in the
// requested format (json, text or markdown; json when unspecified)
func (s *Server) exportDocumentHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	doc, err := s.Store.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	rendered, err := formatters.GlobalRegistry.Format(doc.Content, format)
	if err != nil {
		writeErrorResponse(w, "Unsupported format", err.Error(), http.StatusBadRequest)
		return
	}

	contentType, extension := exportContentType(format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", exportFilename(doc, extension)))
	if _, err := w.Write([]byte(rendered)); err != nil {
		s.Logger.LogError(err, "Failed to write export response", "document_id", doc.ID)
		return
	}

	s.Store.Track(r.Context(), userID, "document_exported")
}

func exportContentType(format string) (contentType, extension string) {
	switch format {
	case "text":
		return "text/plain; charset=utf-8", "txt"
	case "markdown":
		return "text/markdown; charset=utf-8", "md"
	default:
		return "application/json", "json"
	}
}

func exportFilename(doc *store.StoredDocument, extension string) string {
	name := doc.Title
	if name == "" {
		name = string(doc.Kind)
	}
	return name + "." + extension
}

// deleteDocumentHandler removes a stored document
func (s *Server) deleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if err := s.Store.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeAppError(w, err)
		return
	}

	s.Store.Track(r.Context(), userID, "document_deleted")
	w.WriteHeader(http.StatusNoContent)
}
