package storage

import (
	"errors"
	"time"
)

var (
	ErrInvalidPath      = errors.New("invalid object path")
	ErrInvalidBucket    = errors.New("invalid bucket name")
	ErrObjectExists     = errors.New("object already exists")
	ErrObjectNotFound   = errors.New("object not found")
	ErrBucketNotPublic  = errors.New("bucket is not public")
	ErrInvalidSignature = errors.New("invalid or expired signature")
	ErrTooLarge         = errors.New("object exceeds the upload limit")
)

// Object is one entry of a listing. Folders have a nil ID.
type Object struct {
	Name      string     `json:"name"`
	ID        *string    `json:"id"`
	Size      int64      `json:"size"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// IsFolder reports whether the entry is a folder
func (o Object) IsFolder() bool {
	return o.ID == nil
}

// File is a file found by a recursive walk
type File struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

type SortColumn string

const (
	SortByName      SortColumn = "name"
	SortByUpdatedAt SortColumn = "updated_at"
)

type ListOptions struct {
	Limit  int
	Offset int
	SortBy SortColumn
	Desc   bool
}

const DefaultListLimit = 100

type UploadOptions struct {
	ContentType string
	Upsert      bool
}

type SignRequest struct {
	Path      string `json:"path" validate:"required,max=1024"`
	ExpiresIn int    `json:"expires_in" validate:"omitempty,min=1,max=604800"` // seconds
}

type RemoveRequest struct {
	Paths []string `json:"paths" validate:"required,min=1,max=100,dive,required,max=1024"`
}

type UploadResponse struct {
	Path      string `json:"path"`
	PublicURL string `json:"public_url,omitempty"`
}

type SignResponse struct {
	SignedURL string    `json:"signed_url"`
	ExpiresAt time.Time `json:"expires_at"`
}
