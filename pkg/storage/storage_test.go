package storage

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfdesk/pkg/errors"
	"pdfdesk/pkg/kvstore"
	"pdfdesk/pkg/models"
)

var uploaded = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func sampleDoc(i int) models.AdminDocument {
	data := []byte(fmt.Sprintf("%%PDF-1.4 document %d", i))
	return models.AdminDocument{
		ID:         fmt.Sprintf("doc%05d", i),
		Name:       fmt.Sprintf("file-%d.pdf", i),
		Size:       int64(len(data)),
		Data:       data,
		UploadedAt: uploaded.Add(time.Duration(i) * time.Minute),
	}
}

func TestDocumentsRoundTrip(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	store, err := LoadDocuments(kv, 0)
	require.NoError(t, err)
	assert.Equal(t, MaxAdminDocuments, store.MaxCount())

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Insert(sampleDoc(i)))
	}
	_, err = store.RecordDownload("doc00001")
	require.NoError(t, err)
	_, err = store.RecordDownload("doc00001")
	require.NoError(t, err)

	reloaded, err := LoadDocuments(kv, 0)
	require.NoError(t, err)
	want := store.List()
	got := reloaded.List()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.Equal(t, want[i].Data, got[i].Data)
		assert.Equal(t, want[i].Downloads, got[i].Downloads)
		assert.True(t, want[i].UploadedAt.Equal(got[i].UploadedAt))
	}
	assert.Equal(t, 2, got[1].Downloads)
}

func TestDocumentsCapRejectsInsert(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	store, err := LoadDocuments(kv, 2)
	require.NoError(t, err)
	require.NoError(t, store.Insert(sampleDoc(1)))
	require.NoError(t, store.Insert(sampleDoc(2)))

	err = store.Insert(sampleDoc(3))
	assert.ErrorIs(t, err, errors.ErrCollectionFull)
	assert.Equal(t, 2, store.Len())

	require.NoError(t, store.Remove("doc00001"))
	require.NoError(t, store.Insert(sampleDoc(3)))
	assert.ErrorIs(t, store.Remove("missing"), errors.ErrDocumentNotFound)
}

func TestDocumentsWriteFailureKeepsMemoryUnchanged(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	store, err := LoadDocuments(kv, 0)
	require.NoError(t, err)
	require.NoError(t, store.Insert(sampleDoc(1)))

	kv.SetUnavailable(true)
	assert.Error(t, store.Insert(sampleDoc(2)))
	assert.Error(t, store.Remove("doc00001"))
	assert.Equal(t, 1, store.Len())
}

func TestDocumentsLegacyArray(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	payload := base64.StdEncoding.EncodeToString([]byte("%PDF-legacy"))
	legacy := `[
		{"id": 1714554000000, "name": "old.pdf", "data": "data:application/pdf;base64,` + payload + `", "uploadDate": 1714554000000, "downloadCount": 3},
		{"id": "abc", "name": "broken.pdf", "data": "!!!not base64"},
		{"name": "no-id.pdf"}
	]`
	require.NoError(t, kv.Set(KeyAdminFiles, legacy))

	store, err := LoadDocuments(kv, 0)
	require.NoError(t, err)
	docs := store.List()
	require.Len(t, docs, 1)
	assert.Equal(t, "1714554000000", docs[0].ID)
	assert.Equal(t, []byte("%PDF-legacy"), docs[0].Data)
	assert.Equal(t, int64(len("%PDF-legacy")), docs[0].Size)
	assert.Equal(t, 3, docs[0].Downloads)
	assert.Equal(t, int64(1714554000000), docs[0].UploadedAt.UnixMilli())
}

func TestCollectionFallsBackToEmpty(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":     "{broken",
		"wrong shape":  `{"version":1,"items":"nope"}`,
		"newer schema": `{"version":99,"items":[{"id":"a"}]}`,
		"empty":        "",
	} {
		t.Run(name, func(t *testing.T) {
			kv := kvstore.NewMemoryStore()
			require.NoError(t, kv.Set(KeyAdminFiles, raw))
			store, err := LoadDocuments(kv, 0)
			require.NoError(t, err)
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestLoadDocumentsStorageUnavailable(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	kv.SetUnavailable(true)
	_, err := LoadDocuments(kv, 0)
	assert.ErrorIs(t, err, errors.ErrStorageUnavailable)
}

func TestDownloadLogCapped(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	downloads := LoadDownloadLog(kv)
	for i := 0; i < MaxDownloadRecords+5; i++ {
		require.NoError(t, downloads.Record(models.DownloadRecord{
			FileID:       fmt.Sprintf("f%d", i),
			Name:         "a.pdf",
			DownloadedAt: uploaded.Add(time.Duration(i) * time.Second),
		}))
	}
	records := LoadDownloadLog(kv).List()
	require.Len(t, records, MaxDownloadRecords)
	assert.Equal(t, fmt.Sprintf("f%d", MaxDownloadRecords+4), records[0].FileID)
}

func TestQuoteStore(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	now := uploaded
	quotes := LoadQuotes(kv, func() time.Time { return now })

	first, err := quotes.Save(models.Quote{Text: "Stay hungry.", Author: "Jobs", Source: "zenquotes"})
	require.NoError(t, err)
	_, err = quotes.Save(models.Quote{Text: "Stay hungry.", Author: "Jobs", Source: "quotable"})
	assert.ErrorIs(t, err, errors.ErrQuoteDuplicate)

	second, err := quotes.Save(models.Quote{Text: "Stay foolish.", Author: "Jobs"})
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	for i := 0; i < MaxSavedQuotes; i++ {
		now = now.Add(time.Second)
		_, err := quotes.Save(models.Quote{Text: fmt.Sprintf("q%d", i), Author: "anon"})
		require.NoError(t, err)
	}
	list := LoadQuotes(kv, nil).List()
	require.Len(t, list, MaxSavedQuotes)
	assert.Equal(t, fmt.Sprintf("q%d", MaxSavedQuotes-1), list[0].Text)

	require.NoError(t, quotes.Remove(list[0].ID))
	assert.ErrorIs(t, quotes.Remove(list[0].ID), errors.ErrQuoteNotFound)
	assert.Len(t, quotes.List(), MaxSavedQuotes-1)
}

func TestQuoteStoreLegacyArray(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	require.NoError(t, kv.Set(KeySavedQuotes,
		`[{"id":1714554000000,"text":"Keep going.","author":"Anon","savedAt":"5/1/2024, 9:00:00 AM"}]`))

	list := LoadQuotes(kv, nil).List()
	require.Len(t, list, 1)
	assert.Equal(t, "Keep going.", list[0].Text)
	assert.Equal(t, int64(1714554000000), list[0].SavedAt.UnixMilli())
}

func TestThemeToggle(t *testing.T) {
	prefs := NewPreferences(kvstore.NewMemoryStore())
	assert.Equal(t, ThemeLight, prefs.Theme())

	theme, err := prefs.ToggleTheme()
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, theme)
	assert.Equal(t, ThemeDark, prefs.Theme())

	theme, err = prefs.ToggleTheme()
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, theme)
}

func TestWriteBackup(t *testing.T) {
	docs := []models.AdminDocument{sampleDoc(1), sampleDoc(2)}
	var buf bytes.Buffer
	require.NoError(t, WriteBackup(&buf, docs))

	r, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	names := make(map[string][]byte)
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		names[f.Name] = data
	}
	assert.Equal(t, docs[0].Data, names["documents/doc00001-file-1.pdf"])
	assert.Contains(t, string(names["manifest.json"]), `"name": "file-2.pdf"`)
	assert.Equal(t, "admin-backup-20240501-0900.zip", BackupFileName(uploaded))
}

func TestUpgradeRewritesLegacyCollections(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	payload := base64.StdEncoding.EncodeToString([]byte("%PDF-legacy"))
	require.NoError(t, kv.Set(KeyAdminFiles,
		`[{"id":"a1","name":"old.pdf","data":"`+payload+`","uploadDate":1714554000000}]`))
	require.NoError(t, kv.Set(KeySavedQuotes, `{"version":1,"items":[]}`))

	upgraded, err := Upgrade(kv)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyAdminFiles}, upgraded)

	legacy, err := NeedsUpgrade(kv, KeyAdminFiles)
	require.NoError(t, err)
	assert.False(t, legacy)

	store, err := LoadDocuments(kv, 0)
	require.NoError(t, err)
	require.Len(t, store.List(), 1)
	assert.Equal(t, "old.pdf", store.List()[0].Name)

	again, err := Upgrade(kv)
	require.NoError(t, err)
	assert.Empty(t, again)
}
