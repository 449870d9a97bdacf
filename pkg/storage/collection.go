// Package storage keeps the typed collections that are mirrored into the
// durable key/value store.
package storage

import (
	"encoding/json"

	logging "github.com/ipfs/go-log/v2"
	"github.com/tidwall/gjson"

	"pdfdesk/pkg/errors"
	"pdfdesk/pkg/kvstore"
	"pdfdesk/pkg/models"
)

var log = logging.Logger("storage")

// Durable keys
const (
	KeyAdminFiles      = "adminFiles"
	KeySavedQuotes     = "savedQuotes"
	KeyDownloadedFiles = "downloadedFiles"
	KeyTheme           = "theme"
)

// loadCollection reads the collection stored under key. A payload that
// cannot be parsed yields an empty collection; only an unreadable store is
// reported as an error. Bare JSON arrays written before the versioned
// envelope existed are decoded item by item with legacy.
func loadCollection[T any](kv kvstore.Store, key string, legacy func(gjson.Result) (T, bool)) ([]T, error) {
	raw, ok, err := kv.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return []T{}, nil
	}

	if !gjson.Valid(raw) {
		log.Warnf("Discarding unparseable %s payload (%d bytes)", key, len(raw))
		return []T{}, nil
	}

	parsed := gjson.Parse(raw)
	if parsed.IsArray() {
		items := make([]T, 0)
		parsed.ForEach(func(_, value gjson.Result) bool {
			if item, ok := legacy(value); ok {
				items = append(items, item)
			} else {
				log.Warnf("Skipping malformed legacy %s entry", key)
			}
			return true
		})
		log.Infof("Loaded %d legacy %s entries", len(items), key)
		return items, nil
	}

	var envelope models.Envelope[T]
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		log.Warnf("Discarding unparseable %s payload: %v", key, err)
		return []T{}, nil
	}
	if envelope.Version > models.SchemaVersion {
		log.Warnf("%s was written by a newer schema (v%d), ignoring it", key, envelope.Version)
		return []T{}, nil
	}
	if envelope.Items == nil {
		envelope.Items = []T{}
	}
	return envelope.Items, nil
}

// saveCollection writes items under key inside a versioned envelope
func saveCollection[T any](kv kvstore.Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(models.Envelope[T]{Version: models.SchemaVersion, Items: items})
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeStorage, "SERIALIZE_FAILED", "failed to serialize collection").
			WithContext("key", key)
	}

	retryHandler := errors.NewRetryHandler(2)
	return retryHandler.Execute(func() error {
		return kv.Set(key, string(raw))
	})
}

// legacyJSON decodes a legacy entry that already has the current field names
func legacyJSON[T any](value gjson.Result) (T, bool) {
	var item T
	if err := json.Unmarshal([]byte(value.Raw), &item); err != nil {
		return item, false
	}
	return item, true
}
