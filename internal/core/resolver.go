package core

import (
	"context"
	"errors"
	"fmt"
)

// PropertyResolver maps property names to ids through a PropertyDirectory.
// Lookups are cached for the lifetime of the resolver, which is one import
// invocation. A resolver is not safe for concurrent use.
type PropertyResolver struct {
	dir   PropertyDirectory
	cache map[string]resolved
}

type resolved struct {
	id  PropertyID
	err error
}

// NewPropertyResolver creates a resolver backed by dir.
func NewPropertyResolver(dir PropertyDirectory) *PropertyResolver {
	return &PropertyResolver{dir: dir, cache: make(map[string]resolved)}
}

// Resolve looks up the property named on rec. Failures come back as an
// unknown_property ImportError for the record's row.
func (r *PropertyResolver) Resolve(ctx context.Context, rec BookingRecord) (PropertyID, *ImportError) {
	key := FoldName(rec.PropertyName)

	res, ok := r.cache[key]
	if !ok {
		id, err := r.dir.LookupByName(ctx, rec.PropertyName)
		res = resolved{id: id, err: err}
		// Context errors are not a property of the name.
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			r.cache[key] = res
		}
	}
	if res.err == nil {
		return res.id, nil
	}

	msg := fmt.Sprintf("property %q not found", rec.PropertyName)
	if !errors.Is(res.err, ErrPropertyNotFound) {
		msg = fmt.Sprintf("property %q could not be resolved: %v", rec.PropertyName, res.err)
	}
	return 0, &ImportError{
		RowIndex: rec.RowIndex,
		Field:    FieldPropertyName,
		Message:  msg,
		Kind:     KindUnknownProperty,
	}
}
