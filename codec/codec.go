// Package codec turns records into the bytes stored in the userdata table (and
// in shared cache entries) and back.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
