package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pdfdesk/pkg/errors"
	"pdfdesk/pkg/models"
	"pdfdesk/pkg/types"
)

// ListFilesHandler lists the library
func (h *Handlers) ListFilesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.FromLibraryFiles(h.Library.List(), h.Now()))
}

// UploadFileHandler adds a PDF to the library
func (h *Handlers) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	name, data, err := readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	file, err := h.Library.Upload(name, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.FromLibraryFile(file, h.Now()))
}

// RemoveFileHandler deletes a library file
func (h *Handlers) RemoveFileHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Library.Remove(id); err != nil {
		writeError(w, err)
		return
	}
	h.Viewer.DocumentRemoved(id)
	w.WriteHeader(http.StatusNoContent)
}

// DownloadFileHandler streams a library file
func (h *Handlers) DownloadFileHandler(w http.ResponseWriter, r *http.Request) {
	file, err := h.Library.Download(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeAttachment(w, "application/pdf", file.Name, file.Data)
}

// DownloadsHandler lists recent downloads
func (h *Handlers) DownloadsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Library.Downloads())
}

// ViewerStateHandler returns the viewer state
func (h *Handlers) ViewerStateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Viewer.State())
}

// ViewerOpenHandler opens a library or admin document
func (h *Handlers) ViewerOpenHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID    string `json:"id"`
		Admin bool   `json:"admin"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	state, err := h.Viewer.Open(req.ID, req.Admin)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// ViewerDownloadHandler streams the document open in the viewer
func (h *Handlers) ViewerDownloadHandler(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Viewer.DownloadCurrent()
	if err != nil {
		writeError(w, err)
		return
	}
	writeAttachment(w, "application/pdf", doc.Name, doc.Data)
}

// ViewerNextHandler moves one page forward
func (h *Handlers) ViewerNextHandler(w http.ResponseWriter, r *http.Request) {
	state, err := h.Viewer.Next()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// ViewerPrevHandler moves one page back
func (h *Handlers) ViewerPrevHandler(w http.ResponseWriter, r *http.Request) {
	state, err := h.Viewer.Previous()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// ViewerGoToHandler jumps to a page
func (h *Handlers) ViewerGoToHandler(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		writeError(w, errors.ErrPageOutOfRange.WithContext("page", chi.URLParam(r, "n")))
		return
	}
	state, err := h.Viewer.GoTo(n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// ViewerScaleHandler sets the zoom scale or zooms by steps
func (h *Handlers) ViewerScaleHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Scale *float64 `json:"scale"`
		Steps int      `json:"steps"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Scale != nil {
		writeJSON(w, http.StatusOK, h.Viewer.SetScale(*req.Scale))
		return
	}
	writeJSON(w, http.StatusOK, h.Viewer.Zoom(req.Steps))
}

type quoteResponse struct {
	Quote    models.Quote `json:"quote"`
	Fallback bool         `json:"fallback"`
}

// RandomQuoteHandler fetches a random quote
func (h *Handlers) RandomQuoteHandler(w http.ResponseWriter, r *http.Request) {
	q, fallback := h.Quotes.Random(r.Context())
	writeJSON(w, http.StatusOK, quoteResponse{Quote: q, Fallback: fallback})
}

// CategoryQuoteHandler fetches a quote for a category
func (h *Handlers) CategoryQuoteHandler(w http.ResponseWriter, r *http.Request) {
	q, fallback := h.Quotes.ByCategory(r.Context(), chi.URLParam(r, "category"))
	writeJSON(w, http.StatusOK, quoteResponse{Quote: q, Fallback: fallback})
}

// ShareQuoteHandler returns the share text of the current quote
func (h *Handlers) ShareQuoteHandler(w http.ResponseWriter, r *http.Request) {
	text, err := h.Quotes.Share()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// SavedQuotesHandler lists saved quotes
func (h *Handlers) SavedQuotesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Quotes.Saved())
}

// SaveQuoteHandler saves the current quote
func (h *Handlers) SaveQuoteHandler(w http.ResponseWriter, r *http.Request) {
	saved, err := h.Quotes.SaveCurrent()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func quoteID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, errors.ErrQuoteNotFound.WithContext("quoteId", chi.URLParam(r, "id"))
	}
	return id, nil
}

// LoadSavedQuoteHandler puts a saved quote back on display
func (h *Handlers) LoadSavedQuoteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := quoteID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q, err := h.Quotes.LoadSaved(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{Quote: q})
}

// RemoveSavedQuoteHandler deletes a saved quote
func (h *Handlers) RemoveSavedQuoteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := quoteID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Quotes.RemoveSaved(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListQuestionsHandler lists the questions board
func (h *Handlers) ListQuestionsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Questions.List())
}

// AddQuestionHandler adds a question
func (h *Handlers) AddQuestionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type models.QuestionType `json:"type"`
		Text string              `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	q, err := h.Questions.Add(req.Type, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

// UpdateQuestionHandler sets one field of a question
func (h *Handlers) UpdateQuestionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	q, err := h.Questions.Update(chi.URLParam(r, "id"), req.Field, req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// RemoveQuestionHandler deletes a question
func (h *Handlers) RemoveQuestionHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Questions.Remove(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportQuestionsHandler downloads the board as JSON, named after the
// document open in the viewer
func (h *Handlers) ExportQuestionsHandler(w http.ResponseWriter, r *http.Request) {
	docName := ""
	if state := h.Viewer.State(); state.Document != nil {
		docName = state.Document.Name
	}
	name, data, err := h.Questions.Export(docName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeAttachment(w, "application/json", name, data)
}

// ThemeHandler returns the theme
func (h *Handlers) ThemeHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"theme": h.Prefs.Theme()})
}

// ToggleThemeHandler switches the theme
func (h *Handlers) ToggleThemeHandler(w http.ResponseWriter, r *http.Request) {
	theme, err := h.Prefs.ToggleTheme()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"theme": theme})
}
