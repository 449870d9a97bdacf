package handlers

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pdfdesk/pkg/storage"
	"pdfdesk/pkg/types"
)

// SessionHandler reports the admin session state
func (h *Handlers) SessionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessionView())
}

func (h *Handlers) sessionView() types.SessionView {
	at, ok := h.Session.AuthenticatedAt()
	return types.NewSessionView(h.Session.State().String(), ok, h.Session.Remaining(), at)
}

// PromptHandler asks connected clients to show the PIN prompt
func (h *Handlers) PromptHandler(w http.ResponseWriter, r *http.Request) {
	h.Session.RequestLogin()
	w.WriteHeader(http.StatusNoContent)
}

// SubmitPINHandler handles a PIN submission
func (h *Handlers) SubmitPINHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PIN string `json:"pin"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.Session.SubmitPIN(req.PIN); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sessionView())
}

// LogoutHandler ends the admin session
func (h *Handlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	h.Session.Logout()
	writeJSON(w, http.StatusOK, h.sessionView())
}

// ListAdminDocumentsHandler lists the admin documents
func (h *Handlers) ListAdminDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Admin.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.FromAdminDocuments(docs, h.Now()))
}

// UploadAdminDocumentHandler adds a PDF to the admin collection
func (h *Handlers) UploadAdminDocumentHandler(w http.ResponseWriter, r *http.Request) {
	name, data, err := readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := h.Admin.Upload(name, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.FromAdminDocument(doc, h.Now()))
}

// DownloadAdminDocumentHandler streams an admin document
func (h *Handlers) DownloadAdminDocumentHandler(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Admin.Download(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeAttachment(w, "application/pdf", doc.Name, doc.Data)
}

// RemoveAdminDocumentHandler deletes an admin document
func (h *Handlers) RemoveAdminDocumentHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Admin.Remove(id); err != nil {
		writeError(w, err)
		return
	}
	h.Viewer.DocumentRemoved(id)
	w.WriteHeader(http.StatusNoContent)
}

// BackupHandler downloads a zip of the admin documents
func (h *Handlers) BackupHandler(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.Admin.Backup(&buf); err != nil {
		writeError(w, err)
		return
	}
	writeAttachment(w, "application/zip", storage.BackupFileName(h.Now()), buf.Bytes())
}
