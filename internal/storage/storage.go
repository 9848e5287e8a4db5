package storage

import (
	"context"
	"fmt"
	"io"
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Bucket() string
}

// Materials stores the downloadable policy document attached to each
// onboarding section, keyed by section id.
type Materials struct {
	backend ObjectStorage
}

// NewMaterials constructs a Materials store for the provided backend.
func NewMaterials(backend ObjectStorage) *Materials {
	return &Materials{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (m *Materials) EnsureBucket(ctx context.Context) error {
	return m.backend.EnsureBucket(ctx)
}

// Put stores the material for a section, replacing any previous upload.
func (m *Materials) Put(ctx context.Context, sectionID int, r io.Reader, size int64, contentType string) error {
	return m.backend.Put(ctx, materialKey(sectionID), r, size, contentType)
}

// Get opens a reader for a section's material.
func (m *Materials) Get(ctx context.Context, sectionID int) (io.ReadCloser, error) {
	return m.backend.Get(ctx, materialKey(sectionID))
}

func materialKey(sectionID int) string {
	return fmt.Sprintf("sections/%d/material", sectionID)
}
