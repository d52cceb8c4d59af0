package errors

// Kind is the closed set of reasons a classification can fail. A Kind is
// itself an error so callers can test with errors.Is(err, errors.KindEmptySignal).
type Kind string

const (
	KindResourceNotFound  Kind = "ResourceNotFound"
	KindMalformedData     Kind = "MalformedData"
	KindUnsupportedFormat Kind = "UnsupportedFormat"
	KindEmptySignal       Kind = "EmptySignal"
	KindModelUnavailable  Kind = "ModelUnavailable"
	KindShapeMismatch     Kind = "ShapeMismatch"
	KindUnknownClassIndex Kind = "UnknownClassIndex"
)

// Kinds lists every Kind in declaration order.
var Kinds = []Kind{
	KindResourceNotFound,
	KindMalformedData,
	KindUnsupportedFormat,
	KindEmptySignal,
	KindModelUnavailable,
	KindShapeMismatch,
	KindUnknownClassIndex,
}

// Error implements error.
func (k Kind) Error() string {
	return string(k)
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k Kind) category() ErrorCategory {
	switch k {
	case KindResourceNotFound:
		return CategoryNotFound
	case KindMalformedData:
		return CategoryFileParsing
	case KindUnsupportedFormat, KindEmptySignal:
		return CategoryAudio
	case KindModelUnavailable:
		return CategoryModelLoad
	case KindShapeMismatch:
		return CategoryInference
	case KindUnknownClassIndex:
		return CategoryLabelLoad
	default:
		return CategoryGeneric
	}
}

// KindOf returns the outermost Kind found in err's chain, or "" when err carries none.
func KindOf(err error) Kind {
	for e := err; e != nil; e = Unwrap(e) {
		switch v := e.(type) {
		case Kind:
			return v
		case *EnhancedError:
			if v.Kind != "" {
				return v.Kind
			}
		}
	}
	var k Kind
	if As(err, &k) {
		return k
	}
	return ""
}

// WithKind is shorthand for New(err).Kind(kind).
func WithKind(err error, kind Kind) *ErrorBuilder {
	return New(err).Kind(kind)
}
