package storage

import (
	"encoding/base64"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"pdfdesk/pkg/errors"
	"pdfdesk/pkg/kvstore"
	"pdfdesk/pkg/models"
)

// MaxAdminDocuments caps the admin collection; inserts past it are rejected
const MaxAdminDocuments = 10

// DocumentStore is the admin document collection mirrored under adminFiles
type DocumentStore struct {
	kv       kvstore.Store
	maxCount int
	mutex    sync.RWMutex
	docs     []models.AdminDocument
}

// LoadDocuments reads the admin collection from kv
func LoadDocuments(kv kvstore.Store, maxCount int) (*DocumentStore, error) {
	if maxCount <= 0 {
		maxCount = MaxAdminDocuments
	}
	docs, err := loadCollection(kv, KeyAdminFiles, legacyAdminDocument)
	if err != nil {
		return nil, err
	}
	return &DocumentStore{kv: kv, maxCount: maxCount, docs: docs}, nil
}

// MaxCount returns the collection cap
func (s *DocumentStore) MaxCount() int {
	return s.maxCount
}

// Len returns the number of documents
func (s *DocumentStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.docs)
}

// List returns the documents in upload order
func (s *DocumentStore) List() []models.AdminDocument {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	out := make([]models.AdminDocument, len(s.docs))
	copy(out, s.docs)
	return out
}

// Get returns the document with id
func (s *DocumentStore) Get(id string) (models.AdminDocument, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for _, doc := range s.docs {
		if doc.ID == id {
			return doc, nil
		}
	}
	return models.AdminDocument{}, errors.ErrDocumentNotFound.WithContext("documentId", id)
}

// Insert appends doc and persists the collection
func (s *DocumentStore) Insert(doc models.AdminDocument) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(s.docs) >= s.maxCount {
		return errors.ErrCollectionFull.
			WithUserMessage("Maximum " + strconv.Itoa(s.maxCount) + " files allowed").
			WithContext("max", s.maxCount)
	}

	next := append(append([]models.AdminDocument(nil), s.docs...), doc)
	if err := saveCollection(s.kv, KeyAdminFiles, next); err != nil {
		return err
	}
	s.docs = next
	return nil
}

// Remove deletes the document with id and persists the collection
func (s *DocumentStore) Remove(id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	next := make([]models.AdminDocument, 0, len(s.docs))
	found := false
	for _, doc := range s.docs {
		if doc.ID == id {
			found = true
			continue
		}
		next = append(next, doc)
	}
	if !found {
		return errors.ErrDocumentNotFound.WithContext("documentId", id)
	}
	if err := saveCollection(s.kv, KeyAdminFiles, next); err != nil {
		return err
	}
	s.docs = next
	return nil
}

// RecordDownload increments the download counter of id and returns the
// updated document
func (s *DocumentStore) RecordDownload(id string) (models.AdminDocument, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	idx := -1
	for i, doc := range s.docs {
		if doc.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.AdminDocument{}, errors.ErrDocumentNotFound.WithContext("documentId", id)
	}

	next := append([]models.AdminDocument(nil), s.docs...)
	next[idx].Downloads++
	if err := saveCollection(s.kv, KeyAdminFiles, next); err != nil {
		return models.AdminDocument{}, err
	}
	s.docs = next
	return next[idx], nil
}

// legacyAdminDocument decodes the ad hoc objects stored before the
// versioned envelope: numeric ids, data URLs and camelCase field names.
func legacyAdminDocument(v gjson.Result) (models.AdminDocument, bool) {
	if !v.IsObject() {
		return models.AdminDocument{}, false
	}

	doc := models.AdminDocument{
		ID:        firstOf(v, "id").String(),
		Name:      firstOf(v, "name").String(),
		Downloads: int(firstOf(v, "downloads", "downloadCount").Int()),
	}
	if doc.ID == "" || doc.Name == "" {
		return models.AdminDocument{}, false
	}

	data := firstOf(v, "data").String()
	if i := strings.Index(data, ";base64,"); strings.HasPrefix(data, "data:") && i >= 0 {
		data = data[i+len(";base64,"):]
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return models.AdminDocument{}, false
	}
	doc.Data = raw
	doc.Size = int64(len(raw))

	uploaded := firstOf(v, "uploaded_at", "uploadedAt", "uploadDate")
	switch uploaded.Type {
	case gjson.Number:
		doc.UploadedAt = time.UnixMilli(uploaded.Int())
	case gjson.String:
		if t, err := time.Parse(time.RFC3339, uploaded.String()); err == nil {
			doc.UploadedAt = t
		}
	}
	return doc, true
}

func firstOf(v gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if r := v.Get(p); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}
