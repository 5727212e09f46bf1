package models

import "io"

// UploadedFile represents a file uploaded by the user for conversion
type UploadedFile struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// Artifact is the converted PDF written to the converted scratch directory.
type Artifact struct {
	Filename string // <original-base-name>.pdf, used for Content-Disposition
	Path     string
	Size     int64
}

// Receipt describes a retention copy accepted by the remote store.
type Receipt struct {
	Key    string `json:"key"`
	Folder string `json:"folder"`
	URL    string `json:"url,omitempty"`
	Bytes  int64  `json:"bytes"`
}
