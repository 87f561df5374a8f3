package database

import (
	"encoding/binary"
	"errors"
	"math"
)

// Embeddings are stored as opaque blobs of raw little-endian 32-bit floats.
// The vector length is fixed by the detector's model and not validated here.

// EncodeEmbedding serializes an embedding vector into its blob form.
func EncodeEmbedding(embedding []float32) []byte {
	if len(embedding) == 0 {
		return nil
	}
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeEmbedding parses an embedding blob back into a float32 vector.
// Returns an error for blobs whose length is not a multiple of 4.
func DecodeEmbedding(blob []byte) ([]float32, error) {
	if len(blob) == 0 {
		return nil, errors.New("empty embedding blob")
	}
	if len(blob)%4 != 0 {
		return nil, errors.New("embedding blob length is not a multiple of 4")
	}
	embedding := make([]float32, len(blob)/4)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return embedding, nil
}
