// Package services holds the business logic behind the HTTP API: the
// guarded admin collection, the public library, the viewer, quotes, the
// questions board and preferences.
package services

import (
	"time"

	"github.com/gabriel-vasile/mimetype"
	logging "github.com/ipfs/go-log/v2"

	"pdfdesk/pkg/auth"
	"pdfdesk/pkg/errors"
)

var log = logging.Logger("services")

type nopNotifier struct{}

func (nopNotifier) Notify(string, auth.Severity) {}

func notifierOrNop(n auth.Notifier) auth.Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

func clockOrNow(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

// validateUpload runs the size and name checks and sniffs the content. The
// declared content type of an upload is ignored.
func validateUpload(name string, data []byte) error {
	validator := errors.NewValidator()
	if result := validator.ValidateUpload(name, len(data)); !result.IsValid {
		err := result.GetFirstError()
		err.Log()
		return err
	}

	mtype := mimetype.Detect(data)
	if !mtype.Is("application/pdf") {
		err := errors.ErrNotPDF.
			WithUserMessage(name+" is not a PDF").
			WithContext("detected", mtype.String())
		err.Log()
		return err
	}
	return nil
}
