package store

import (
	"context"
	"time"
)

// KeyPrefix marks every object this service writes.
const KeyPrefix = "generated_"

type UploadParams struct {
	Name        string
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

// Store persists an object and returns the public URL it is reachable at.
type Store interface {
	Store(context.Context, UploadParams) (string, error)
}

type Object struct {
	Key          string
	URL          string
	LastModified time.Time
	Metadata     map[string]string
}

// Lister enumerates previously generated objects.
type Lister interface {
	List(context.Context) ([]Object, error)
}
