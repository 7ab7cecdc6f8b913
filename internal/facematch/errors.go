package facematch

import "errors"

var (
	// ErrDecode is returned when image bytes cannot be decoded.
	ErrDecode = errors.New("image decode failed")

	// ErrInvalidEncodingVariant is returned when encodings of different
	// variants meet in the Matcher or the codec. It indicates an
	// Encoder/Matcher configuration mismatch.
	ErrInvalidEncodingVariant = errors.New("invalid encoding variant")

	// ErrExtractionFailed is returned by extractors that found no usable
	// face. Encoders turn it into a nil encoding, same as "no face".
	ErrExtractionFailed = errors.New("embedding extraction failed")

	// ErrMalformedEncoding is returned when a stored encoding value does not
	// have the shape of the hinted variant.
	ErrMalformedEncoding = errors.New("malformed stored encoding")
)
