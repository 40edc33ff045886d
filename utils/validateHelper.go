package utils

import (
	"context"
	"errors"
	"reflect"

	"github.com/ktirsdata/ntr_backend/config"
)

// check if id exists, using the given mda_id in WHERE, return RecordNotFound error
func ValidateResourceId[T any](ctx context.Context, mdaId int, id interface{}) error {

	count, err := ResourceCountWhere[T](ctx, mdaId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

// check if ALL ids exist, using the given mda_id in WHERE, return RecordNotFound error
func ValidateResourcesId[M any, ID comparable](ctx context.Context, mdaId int, ids []ID) error {
	unqIds := UniqueSlice(ids)

	count, err := ResourceCountWhere[M](ctx, mdaId, "id IN ?", unqIds)
	if err != nil {
		return err
	}
	if count != int64(len(unqIds)) {
		return ErrorRecordNotFound
	}
	return nil
}

func ValidateUnique[T any](ctx context.Context, mdaId int, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, mdaId, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, mdaId, column+" = ? AND NOT id = ?", value, exceptId)
	}

	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate " + column)
	}
	return nil
}

// count records, using WHERE mda_id = ? AND $condition
// mda_id can be 0 for service-wide models and admin users
func ResourceCountWhere[T any](ctx context.Context, mdaId int, condition string, value ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model)
	var count int64
	if mdaId > 0 {
		dbCtx.Where("mda_id = ?", mdaId)
	}
	dbCtx.Where(condition, value...)
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
