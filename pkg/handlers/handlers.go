// Package handlers exposes the services over HTTP.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	logging "github.com/ipfs/go-log/v2"

	"pdfdesk/pkg/auth"
	"pdfdesk/pkg/errors"
	"pdfdesk/pkg/events"
	"pdfdesk/pkg/middleware"
	"pdfdesk/pkg/services"
)

var log = logging.Logger("handlers")

// Deps are the collaborators the handlers call into
type Deps struct {
	Session   *auth.Manager
	Admin     *services.AdminService
	Library   *services.LibraryService
	Viewer    *services.ViewerService
	Quotes    *services.QuoteService
	Questions *services.QuestionBoard
	Prefs     *services.PreferencesService
	Events    *events.Hub
	StaticDir string
	Now       func() time.Time
}

// Handlers serves the JSON API, the websocket stream and the static UI
type Handlers struct {
	Deps
}

// New creates the handlers
func New(deps Deps) *Handlers {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Handlers{Deps: deps}
}

// Router builds the chi router
func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", h.SessionHandler)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Post("/prompt", h.PromptHandler)
			r.Post("/pin", h.SubmitPINHandler)
			r.Post("/logout", h.LogoutHandler)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(h.Session))
				r.Get("/documents", h.ListAdminDocumentsHandler)
				r.Post("/documents", h.UploadAdminDocumentHandler)
				r.Get("/documents/{id}/download", h.DownloadAdminDocumentHandler)
				r.Delete("/documents/{id}", h.RemoveAdminDocumentHandler)
				r.Get("/backup", h.BackupHandler)
			})
		})

		r.Get("/files", h.ListFilesHandler)
		r.Post("/files", h.UploadFileHandler)
		r.Delete("/files/{id}", h.RemoveFileHandler)
		r.Get("/files/{id}/download", h.DownloadFileHandler)
		r.Get("/downloads", h.DownloadsHandler)

		r.Get("/viewer", h.ViewerStateHandler)
		r.Post("/viewer/open", h.ViewerOpenHandler)
		r.Get("/viewer/download", h.ViewerDownloadHandler)
		r.Post("/viewer/next", h.ViewerNextHandler)
		r.Post("/viewer/prev", h.ViewerPrevHandler)
		r.Post("/viewer/page/{n}", h.ViewerGoToHandler)
		r.Post("/viewer/scale", h.ViewerScaleHandler)

		r.Get("/quotes/random", h.RandomQuoteHandler)
		r.Get("/quotes/category/{category}", h.CategoryQuoteHandler)
		r.Get("/quotes/share", h.ShareQuoteHandler)
		r.Get("/quotes/saved", h.SavedQuotesHandler)
		r.Post("/quotes/saved", h.SaveQuoteHandler)
		r.Post("/quotes/saved/{id}/load", h.LoadSavedQuoteHandler)
		r.Delete("/quotes/saved/{id}", h.RemoveSavedQuoteHandler)

		r.Get("/questions", h.ListQuestionsHandler)
		r.Post("/questions", h.AddQuestionHandler)
		r.Get("/questions/export", h.ExportQuestionsHandler)
		r.Put("/questions/{id}", h.UpdateQuestionHandler)
		r.Delete("/questions/{id}", h.RemoveQuestionHandler)

		r.Get("/theme", h.ThemeHandler)
		r.Post("/theme/toggle", h.ToggleThemeHandler)
	})

	if h.Events != nil {
		r.Get("/ws", h.Events.ServeWS)
	}
	if h.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(h.StaticDir))))
		r.Get("/", h.IndexHandler)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("Encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errors.HTTPStatus(err), errors.ToFrontendError(err))
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil {
		return errors.Wrap(err, errors.ErrTypeValidation, "INVALID_JSON", "invalid JSON body").
			WithUserMessage("Invalid request")
	}
	return nil
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// readUpload returns the "file" part of a multipart upload. It reads one
// byte past the size limit so the validator can reject oversized files.
func readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, errors.MaxUploadBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, errors.Wrap(err, errors.ErrTypeValidation, "UPLOAD_INVALID", "invalid upload").
			WithUserMessage("Choose a PDF file to upload")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, errors.MaxUploadBytes+1))
	if err != nil {
		return "", nil, errors.Wrap(err, errors.ErrTypeValidation, "UPLOAD_INVALID", "failed to read upload").
			WithUserMessage("Upload failed. Please try again")
	}
	return header.Filename, data, nil
}
