package value

import "errors"

// ErrMalformedValue is returned when a TaggedValue cannot be decoded.
var ErrMalformedValue = errors.New("malformed value")
