// Package errs defines the error taxonomy shared by the indexing pipeline.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrExtraction    = errors.New("extraction error")
	ErrEmbedding     = errors.New("embedding error")
	ErrStore         = errors.New("store error")
	ErrConfiguration = errors.New("configuration error")
)

// Extraction wraps err so that errors.Is matches both ErrExtraction and err.
func Extraction(err error) error {
	return wrap(ErrExtraction, err)
}

func Embedding(err error) error {
	return wrap(ErrEmbedding, err)
}

func Store(err error) error {
	return wrap(ErrStore, err)
}

func Configuration(err error) error {
	return wrap(ErrConfiguration, err)
}

func IsExtraction(err error) bool {
	return errors.Is(err, ErrExtraction)
}

func IsEmbedding(err error) bool {
	return errors.Is(err, ErrEmbedding)
}

func IsStore(err error) bool {
	return errors.Is(err, ErrStore)
}

func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func wrap(kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
