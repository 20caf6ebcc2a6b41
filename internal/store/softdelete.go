package store

import "context"

// SoftDelete decorates a Store so that deletes become flag updates and rows
// flagged deleted stay out of ordinary reads and updates. Callers opt back in
// by mentioning the deleted column in their filter; Update and FindUnique
// never honour that override.
type SoftDelete struct {
	next Store
}

func NewSoftDelete(next Store) *SoftDelete {
	return &SoftDelete{next: next}
}

func visible(where Filter) Filter {
	return where.With(DeletedColumn, false)
}

func visibleUnlessMentioned(where Filter) Filter {
	if where.Has(DeletedColumn) {
		return where
	}
	return visible(where)
}

func (s *SoftDelete) FindUnique(ctx context.Context, dest any, where Filter) (bool, error) {
	return s.next.FindFirst(ctx, dest, visible(where))
}

func (s *SoftDelete) FindUniqueOrFail(ctx context.Context, dest any, where Filter) error {
	return s.next.FindFirstOrFail(ctx, dest, visibleUnlessMentioned(where))
}

func (s *SoftDelete) FindFirst(ctx context.Context, dest any, where Filter) (bool, error) {
	return s.next.FindFirst(ctx, dest, visibleUnlessMentioned(where))
}

func (s *SoftDelete) FindFirstOrFail(ctx context.Context, dest any, where Filter) error {
	return s.next.FindFirstOrFail(ctx, dest, visibleUnlessMentioned(where))
}

func (s *SoftDelete) FindMany(ctx context.Context, dest any, q Query) error {
	q.Where = visibleUnlessMentioned(q.Where)
	return s.next.FindMany(ctx, dest, q)
}

func (s *SoftDelete) Create(ctx context.Context, value any) error {
	return s.next.Create(ctx, value)
}

// Update forces the not-deleted scope even when the caller passes deleted, so
// an update aimed at a deleted row matches nothing. Restores go through
// UpdateMany with an explicit deleted=true filter.
func (s *SoftDelete) Update(ctx context.Context, model any, where Filter, values Values) (int64, error) {
	return s.next.UpdateMany(ctx, model, visible(where), values)
}

func (s *SoftDelete) UpdateMany(ctx context.Context, model any, where Filter, values Values) (int64, error) {
	return s.next.UpdateMany(ctx, model, visibleUnlessMentioned(where), values)
}

func (s *SoftDelete) Delete(ctx context.Context, model any, where Filter) (int64, error) {
	return s.next.Update(ctx, model, where, Values{DeletedColumn: true})
}

func (s *SoftDelete) DeleteMany(ctx context.Context, model any, where Filter) (int64, error) {
	return s.next.UpdateMany(ctx, model, where, Values{DeletedColumn: true})
}

func (s *SoftDelete) Count(ctx context.Context, model any, where Filter) (int64, error) {
	return s.next.Count(ctx, model, visibleUnlessMentioned(where))
}
