package domain

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// Status is the processing state of a submitted document.
type Status string

// Document processing states.
const (
	// StatusPending means the backend accepted the file but has not started.
	StatusPending Status = "PENDING"

	// StatusProcessing means analysis is running on the backend.
	StatusProcessing Status = "PROCESSING"

	// StatusCompleted means an analysis is available for the document.
	StatusCompleted Status = "COMPLETED"

	// StatusFailed means the backend (or the client's retry budget) gave up.
	StatusFailed Status = "FAILED"
)

// ParseStatus converts a case-insensitive status name into a Status.
// The second return value is false for unrecognised names.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return StatusPending, false
	}
	return s, true
}

// IsValid returns true if the status is recognised.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once no further transitions are expected.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// String returns the string representation.
func (s Status) String() string {
	return string(s)
}

// Label returns the human-readable status shown in document lists.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Queued"
	case StatusProcessing:
		return "Processing..."
	case StatusCompleted:
		return "Processed"
	case StatusFailed:
		return "Failed"
	default:
		return unknownDescription
	}
}

// rank orders statuses along the lifecycle. Terminal states share a rank.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	default:
		return -1
	}
}

const unknownDescription = "Unknown"

// DocumentRecord is the client-side record of a submitted document.
// Identity is ID; a store holds at most one record per ID.
type DocumentRecord struct {
	// ID is the server-issued document identifier.
	ID string

	// Filename is the original name of the uploaded file.
	Filename string

	// FileType is the MIME type of the uploaded file, if known.
	FileType string

	// UploadTime is when the file was accepted by the backend.
	UploadTime time.Time

	// DocumentType is the backend's classification (e.g. "Lab Results").
	// Empty until the backend has classified the document.
	DocumentType string

	// Status is the last known processing status.
	Status Status
}

// DisplayType returns the document type, falling back to a generic label.
func (d DocumentRecord) DisplayType() string {
	if d.DocumentType == "" || strings.EqualFold(d.DocumentType, "unknown") {
		return "Medical Document"
	}
	return d.DocumentType
}

// MaxUploadSize is the largest file the client will submit (10 MiB).
const MaxUploadSize int64 = 10 * 1024 * 1024

// acceptedContentTypes maps accepted file extensions to their MIME types.
var acceptedContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// AcceptedExtensions lists the file extensions accepted at the client gate.
func AcceptedExtensions() []string {
	return []string{".pdf", ".jpg", ".jpeg", ".png"}
}

// IsAcceptedFile reports whether the filename has an accepted extension.
func IsAcceptedFile(name string) bool {
	_, ok := acceptedContentTypes[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ContentTypeFor returns the MIME type for an accepted filename,
// or application/octet-stream for anything else.
func ContentTypeFor(name string) string {
	if ct, ok := acceptedContentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// FileHandle is a file the user asked to submit.
type FileHandle struct {
	// Name is the file's base name, used as the upload filename.
	Name string

	// Size is the declared size in bytes.
	Size int64

	// Open returns a reader over the file content.
	Open func() (io.ReadCloser, error)
}

// Validate performs the pre-flight checks that run before any network call.
func (f FileHandle) Validate(maxSize int64) error {
	if maxSize <= 0 {
		maxSize = MaxUploadSize
	}
	if strings.TrimSpace(f.Name) == "" {
		return &ValidationError{Filename: f.Name, Reason: "missing filename"}
	}
	if !IsAcceptedFile(f.Name) {
		return &ValidationError{
			Filename: f.Name,
			Reason:   "unsupported file type (accepted: " + strings.Join(AcceptedExtensions(), ", ") + ")",
		}
	}
	if f.Size > maxSize {
		return &ValidationError{
			Filename: f.Name,
			Reason:   fmt.Sprintf("file is %d bytes, the limit is %d bytes", f.Size, maxSize),
		}
	}
	if f.Open == nil {
		return &ValidationError{Filename: f.Name, Reason: "file cannot be read"}
	}
	return nil
}
