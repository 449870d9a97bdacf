package models

import "time"

// AdminDocument is a PDF uploaded under an authenticated admin session
type AdminDocument struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Data       []byte    `json:"data"`
	UploadedAt time.Time `json:"uploaded_at"`
	Downloads  int       `json:"downloads"`
}

// LibraryFile is a PDF uploaded by any visitor; it lives for the process
// lifetime only
type LibraryFile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Data       []byte    `json:"-"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// DownloadRecord remembers a completed download
type DownloadRecord struct {
	FileID       string    `json:"file_id"`
	Name         string    `json:"name"`
	Admin        bool      `json:"admin"`
	DownloadedAt time.Time `json:"downloaded_at"`
}
