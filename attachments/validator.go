// Package attachments decides which uploads a post may carry and writes the
// accepted ones to the upload directory.
//
// Policy: the client filename must carry an allowed extension AND the sniffed
// content must be an allowed media type. The stored extension always comes
// from the sniffed type, so a renamed executable never reaches the disk and a
// mislabelled image is stored under its real extension.
package attachments

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxBytes is the hard size ceiling for one attachment (20 MiB).
const DefaultMaxBytes int64 = 20 << 20

// sniffLen matches mimetype's default read limit.
const sniffLen = 3072

// ErrRejected is matched by every *RejectionError.
var ErrRejected = errors.New("attachment rejected")

// RejectionError explains why an upload was refused.
type RejectionError struct {
	Filename string
	Reason   string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("attachment %q rejected: %s", e.Filename, e.Reason)
}

func (e *RejectionError) Unwrap() error { return ErrRejected }

func reject(filename, format string, args ...any) *RejectionError {
	return &RejectionError{Filename: filename, Reason: fmt.Sprintf(format, args...)}
}

// Kind is the broad media family used when rendering an attachment.
type Kind string

const (
	KindUnknown Kind = ""
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
	KindAudio   Kind = "audio"
)

var allowedExtensions = map[string]Kind{
	".jpg":  KindImage,
	".jpeg": KindImage,
	".png":  KindImage,
	".gif":  KindImage,
	".webp": KindImage,
	".bmp":  KindImage,
	".webm": KindVideo,
	".mp4":  KindVideo,
	".mp3":  KindAudio,
}

// allowedTypes maps a sniffed MIME type to its canonical stored extension.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
	"video/webm": ".webm",
	"video/mp4":  ".mp4",
	"audio/mpeg": ".mp3",
}

// AllowedExtensions lists accepted filename extensions without the dot, sorted.
func AllowedExtensions() []string {
	return []string{"bmp", "gif", "jpeg", "jpg", "mp3", "mp4", "png", "webm", "webp"}
}

// KindOf classifies a stored attachment path by its extension.
func KindOf(stored string) Kind {
	return allowedExtensions[strings.ToLower(path.Ext(stored))]
}

// ContentType returns the MIME type served for a stored attachment path, or
// an empty string for an unknown extension.
func ContentType(stored string) string {
	ext := strings.ToLower(path.Ext(stored))
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	for mime, canonical := range allowedTypes {
		if canonical == ext {
			return mime
		}
	}
	return ""
}

// Upload is a proposed attachment as received from the client.
type Upload struct {
	Filename string
	// Size is the client-declared size; 0 means unknown.
	Size int64
	Body io.Reader
}

// Empty reports whether no file was actually submitted.
func (u *Upload) Empty() bool {
	return u == nil || strings.TrimSpace(u.Filename) == ""
}

// Accepted is an upload that passed validation. Body replays the sniffed
// prefix followed by the rest of the original stream.
type Accepted struct {
	Filename string
	MIME     string
	Ext      string
	Kind     Kind
	body     io.Reader
}

// Body returns the full upload stream.
func (a *Accepted) Body() io.Reader { return a.body }

// Validator enforces the attachment policy.
type Validator struct {
	MaxBytes int64
}

// NewValidator returns a Validator with the given ceiling; maxBytes <= 0 selects DefaultMaxBytes.
func NewValidator(maxBytes int64) *Validator {
	return &Validator{MaxBytes: maxBytes}
}

func (v *Validator) maxBytes() int64 {
	if v == nil || v.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return v.MaxBytes
}

// Validate checks size, extension and sniffed content type. It consumes up
// to sniffLen bytes of u.Body; use the returned Accepted.Body afterwards.
func (v *Validator) Validate(u *Upload) (*Accepted, error) {
	if u.Empty() {
		return nil, reject("", "no file")
	}
	name := filepath.Base(u.Filename)
	limit := v.maxBytes()
	if u.Size > limit {
		return nil, reject(name, "file is %d bytes, limit is %d", u.Size, limit)
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return nil, reject(name, "missing file extension")
	}
	if _, ok := allowedExtensions[ext]; !ok {
		return nil, reject(name, "extension %s is not allowed", ext)
	}
	if u.Body == nil {
		return nil, reject(name, "file is unreadable")
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(u.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, reject(name, "file is unreadable: %v", err)
	}
	if n == 0 {
		return nil, reject(name, "file is empty")
	}
	head = head[:n]

	mime, canonical, ok := lookupType(mimetype.Detect(head))
	if !ok {
		return nil, reject(name, "content type %s is not allowed", mime)
	}
	return &Accepted{
		Filename: name,
		MIME:     mime,
		Ext:      canonical,
		Kind:     allowedExtensions[canonical],
		body:     io.MultiReader(bytes.NewReader(head), u.Body),
	}, nil
}

// lookupType walks the detected type and its parents (e.g. APNG -> PNG).
func lookupType(mt *mimetype.MIME) (string, string, bool) {
	detected := mt.String()
	for m := mt; m != nil; m = m.Parent() {
		if ext, ok := allowedTypes[m.String()]; ok {
			return m.String(), ext, true
		}
	}
	return detected, "", false
}
