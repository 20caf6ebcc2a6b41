package store

import (
	"context"
	"errors"
)

// DeletedColumn is the soft-delete flag carried by every entity table.
const DeletedColumn = "deleted"

var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a write would break a unique index, such as
// a second live link between the same user and role.
var ErrDuplicate = errors.New("duplicate record")

// Filter maps column names to match values. A slice value matches with IN,
// a nil value matches NULL, and Gte/Lte express inclusive bounds.
type Filter map[string]any

// Gte matches rows whose column is greater than or equal to Value.
type Gte struct{ Value any }

// Lte matches rows whose column is less than or equal to Value.
type Lte struct{ Value any }

// Has reports whether the filter mentions column, whatever its value.
func (f Filter) Has(column string) bool {
	_, ok := f[column]
	return ok
}

// With returns a copy of f with column set to value.
func (f Filter) With(column string, value any) Filter {
	out := make(Filter, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	out[column] = value
	return out
}

// Values is an update payload keyed by column.
type Values map[string]any

type Query struct {
	Where   Filter
	OrderBy string
	Limit   int
	Offset  int
}

// Store is the data-access port every repository talks to. Models are gorm
// structs; dest arguments are pointers to a model or to a slice of models.
type Store interface {
	// FindUnique loads the row matching a unique filter. A missing row is
	// reported as found=false with a nil error.
	FindUnique(ctx context.Context, dest any, where Filter) (bool, error)
	// FindUniqueOrFail is FindUnique that returns ErrNotFound for a missing row.
	FindUniqueOrFail(ctx context.Context, dest any, where Filter) error
	FindFirst(ctx context.Context, dest any, where Filter) (bool, error)
	FindFirstOrFail(ctx context.Context, dest any, where Filter) error
	FindMany(ctx context.Context, dest any, q Query) error
	Create(ctx context.Context, value any) error
	// Update changes the row matching a unique filter and returns the number
	// of rows affected.
	Update(ctx context.Context, model any, where Filter, values Values) (int64, error)
	UpdateMany(ctx context.Context, model any, where Filter, values Values) (int64, error)
	Delete(ctx context.Context, model any, where Filter) (int64, error)
	DeleteMany(ctx context.Context, model any, where Filter) (int64, error)
	Count(ctx context.Context, model any, where Filter) (int64, error)
}
