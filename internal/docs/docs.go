// Package docs produces content-hash references for borrower documents.
// Real off-chain storage is out of scope for now: the contract treats the
// reference as an opaque string, so hashing the upload is enough to pin its
// content. Nothing is retained after hashing.
package docs

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Prefix marks a string as a document content reference.
const Prefix = "doc:"

var ErrEmptyDocument = errors.New("document is empty")

type Hasher struct {
	// MaxBytes caps accepted uploads. Zero means no cap.
	MaxBytes int64
}

// Reference hashes the document bytes into a content-addressed reference.
func (h Hasher) Reference(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyDocument
	}
	if h.MaxBytes > 0 && int64(len(data)) > h.MaxBytes {
		return "", fmt.Errorf("document exceeds %d byte limit", h.MaxBytes)
	}
	sum := sha3.Sum256(data)
	return Prefix + hex.EncodeToString(sum[:]), nil
}

// IsReference reports whether s has the shape of a content reference.
func IsReference(s string) bool {
	if !strings.HasPrefix(s, Prefix) {
		return false
	}
	body := strings.TrimPrefix(s, Prefix)
	if len(body) != 64 {
		return false
	}
	_, err := hex.DecodeString(body)
	return err == nil
}
