package util

// ApplyConversion maps the converter function over the models provided,
// returning the converted slice. A nil models slice yields an empty
// (non-nil) slice, which keeps JSON responses as '[]' rather than 'null'.
func ApplyConversion[T any, K any](models []T, converter func(T) K) []K {
	dtos := make([]K, 0, len(models))
	for _, model := range models {
		dtos = append(dtos, converter(model))
	}

	return dtos
}

// NotNilOrDefault dereferences maybe if it is non-nil, returning dflt
// otherwise.
func NotNilOrDefault[T any](maybe *T, dflt T) T {
	if maybe == nil {
		return dflt
	}

	return *maybe
}
