package adapter

import (
	"encoding/json"

	"github.com/gowebpki/jcs"
)

// JSON defines an interface for JSON operations to enable mocking
//
//go:generate mockgen -source=codec.go -destination=../mocks/codec.go -package=mocks -mock_names=JSON=MockJSON,Canonicalizer=MockCanonicalizer
type JSON interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Canonicalizer rewrites a JSON document into its RFC 8785 canonical form
type Canonicalizer interface {
	Canonicalize(data []byte) ([]byte, error)
}

// RealJSON implements JSON using the standard encoding/json package
type RealJSON struct{}

// NewJSON creates a new real JSON implementation
func NewJSON() JSON {
	return &RealJSON{}
}

func (j *RealJSON) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (j *RealJSON) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// JCSCanonicalizer implements Canonicalizer using the jcs package
type JCSCanonicalizer struct{}

// NewCanonicalizer creates a new JCS canonicalizer
func NewCanonicalizer() Canonicalizer {
	return &JCSCanonicalizer{}
}

func (c *JCSCanonicalizer) Canonicalize(data []byte) ([]byte, error) {
	return jcs.Transform(data)
}
