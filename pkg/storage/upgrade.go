package storage

import (
	"github.com/tidwall/gjson"

	"pdfdesk/pkg/kvstore"
	"pdfdesk/pkg/models"
)

// NeedsUpgrade reports whether the payload under key is a bare legacy array
func NeedsUpgrade(kv kvstore.Store, key string) (bool, error) {
	raw, ok, err := kv.Get(key)
	if err != nil || !ok {
		return false, err
	}
	return gjson.Valid(raw) && gjson.Parse(raw).IsArray(), nil
}

// Upgrade rewrites every legacy collection in kv inside the versioned
// envelope and returns the keys it rewrote. Collections already in the
// current format are left alone.
func Upgrade(kv kvstore.Store) ([]string, error) {
	var upgraded []string

	steps := []struct {
		key     string
		rewrite func() error
	}{
		{KeyAdminFiles, func() error { return rewrite(kv, KeyAdminFiles, legacyAdminDocument) }},
		{KeySavedQuotes, func() error { return rewrite(kv, KeySavedQuotes, legacySavedQuote) }},
		{KeyDownloadedFiles, func() error {
			return rewrite(kv, KeyDownloadedFiles, legacyJSON[models.DownloadRecord])
		}},
	}

	for _, step := range steps {
		legacy, err := NeedsUpgrade(kv, step.key)
		if err != nil {
			return upgraded, err
		}
		if !legacy {
			continue
		}
		if err := step.rewrite(); err != nil {
			return upgraded, err
		}
		log.Infof("Upgraded %s to schema v%d", step.key, models.SchemaVersion)
		upgraded = append(upgraded, step.key)
	}
	return upgraded, nil
}

func rewrite[T any](kv kvstore.Store, key string, legacy func(gjson.Result) (T, bool)) error {
	items, err := loadCollection(kv, key, legacy)
	if err != nil {
		return err
	}
	return saveCollection(kv, key, items)
}
