package core

import (
	"fmt"

	"github.com/mohae/deepcopy"
)

// DeepCopy returns a deep copy of v.
// A nil interface value copies to the zero value of T.
func DeepCopy[T any](v T) (T, error) {
	var zero T
	if any(v) == nil {
		return zero, nil
	}
	copied := deepcopy.Copy(v)
	result, ok := copied.(T)
	if !ok {
		return zero, fmt.Errorf("failed to cast copied value to type %T", zero)
	}
	return result, nil
}
