// Package codec converts typed values to and from the bytes written to a
// persistent location.
package codec

// Codec encodes and decodes values of type T.
//
// Implementations must round-trip: Decode(Encode(v)) equals v for any value
// whose fields have a stable serialized representation. Failures are reported
// as *EncodeError and *DecodeError.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
	// Format names the on-disk representation, e.g. "json".
	Format() string
}
