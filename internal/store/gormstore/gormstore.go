package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/frahmantamala/permit-management/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store implements store.Store on top of gorm. It performs no visibility
// filtering of its own; wrap it with store.NewSoftDelete.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// scope applies a filter to tx. Plain values are grouped into one map
// condition, which gorm renders as =, IN or IS NULL.
func scope(tx *gorm.DB, where store.Filter) *gorm.DB {
	eq := make(map[string]interface{}, len(where))
	for column, value := range where {
		switch v := value.(type) {
		case store.Gte:
			tx = tx.Where(clause.Gte{Column: clause.Column{Name: column}, Value: v.Value})
		case store.Lte:
			tx = tx.Where(clause.Lte{Column: clause.Column{Name: column}, Value: v.Value})
		default:
			eq[column] = value
		}
	}
	if len(eq) > 0 {
		tx = tx.Where(eq)
	}
	return tx
}

func (s *Store) first(ctx context.Context, dest any, where store.Filter) error {
	err := scope(s.db.WithContext(ctx), where).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

// translate turns a driver unique-violation into store.ErrDuplicate. Both
// the postgres and sqlite dialectors know their own error codes.
func (s *Store) translate(err error) error {
	if err == nil {
		return nil
	}
	if t, ok := s.db.Dialector.(gorm.ErrorTranslator); ok {
		err = t.Translate(err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}

func found(err error) (bool, error) {
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) FindUnique(ctx context.Context, dest any, where store.Filter) (bool, error) {
	return found(s.first(ctx, dest, where))
}

func (s *Store) FindUniqueOrFail(ctx context.Context, dest any, where store.Filter) error {
	return s.first(ctx, dest, where)
}

func (s *Store) FindFirst(ctx context.Context, dest any, where store.Filter) (bool, error) {
	return found(s.first(ctx, dest, where))
}

func (s *Store) FindFirstOrFail(ctx context.Context, dest any, where store.Filter) error {
	return s.first(ctx, dest, where)
}

func (s *Store) FindMany(ctx context.Context, dest any, q store.Query) error {
	tx := scope(s.db.WithContext(ctx), q.Where)
	if q.OrderBy != "" {
		tx = tx.Order(q.OrderBy)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	return tx.Find(dest).Error
}

func (s *Store) Create(ctx context.Context, value any) error {
	return s.translate(s.db.WithContext(ctx).Create(value).Error)
}

// Update relies on the caller passing a unique filter; the SQL is the same
// as UpdateMany.
func (s *Store) Update(ctx context.Context, model any, where store.Filter, values store.Values) (int64, error) {
	return s.UpdateMany(ctx, model, where, values)
}

func (s *Store) UpdateMany(ctx context.Context, model any, where store.Filter, values store.Values) (int64, error) {
	res := scope(s.db.WithContext(ctx).Model(model), where).Updates(map[string]interface{}(values))
	return res.RowsAffected, s.translate(res.Error)
}

func (s *Store) Delete(ctx context.Context, model any, where store.Filter) (int64, error) {
	return s.DeleteMany(ctx, model, where)
}

func (s *Store) DeleteMany(ctx context.Context, model any, where store.Filter) (int64, error) {
	res := scope(s.db.WithContext(ctx), where).Delete(model)
	return res.RowsAffected, res.Error
}

func (s *Store) Count(ctx context.Context, model any, where store.Filter) (int64, error) {
	var n int64
	err := scope(s.db.WithContext(ctx).Model(model), where).Count(&n).Error
	return n, err
}
