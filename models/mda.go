package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ktirsdata/ntr_backend/config"
	"github.com/ktirsdata/ntr_backend/utils"
)

// Mda is a Ministry, Department or Agency — the organizational unit every
// revenue record hangs off.
type Mda struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Code      string    `gorm:"uniqueIndex;size:20;not null" json:"code" binding:"required"`
	Name      string    `gorm:"index;size:150;not null" json:"name" binding:"required"`
	Sector    string    `gorm:"size:100" json:"sector"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewMda struct {
	Code   string `json:"code" binding:"required"`
	Name   string `json:"name" binding:"required"`
	Sector string `json:"sector"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewMda) validate(ctx context.Context, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Mda](ctx, 0, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[Mda](ctx, 0, "code", strings.TrimSpace(input.Code), id); err != nil {
		return err
	}
	if err := utils.ValidateUnique[Mda](ctx, 0, "name", strings.TrimSpace(input.Name), id); err != nil {
		return err
	}
	return nil
}

func requireAdmin(ctx context.Context) error {
	if isAdmin, ok := utils.GetIsAdminFromContext(ctx); !ok || !isAdmin {
		return errors.New("admin role is required")
	}
	return nil
}

func CreateMda(ctx context.Context, input *NewMda) (*Mda, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	mda := Mda{
		Code:     strings.TrimSpace(input.Code),
		Name:     strings.TrimSpace(input.Name),
		Sector:   strings.TrimSpace(input.Sector),
		IsActive: utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&mda).Error
	if err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Mda](0); err != nil {
		return nil, err
	}
	return &mda, nil
}

func UpdateMda(ctx context.Context, id int, input *NewMda) (*Mda, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	mda, err := utils.FetchSingleModel[Mda](ctx, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(mda).Updates(map[string]interface{}{
		"Code":   strings.TrimSpace(input.Code),
		"Name":   strings.TrimSpace(input.Name),
		"Sector": strings.TrimSpace(input.Sector),
	}).Error
	if err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisInstance[Mda](id); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Mda](0); err != nil {
		return nil, err
	}
	return mda, nil
}

func DeleteMda(ctx context.Context, id int) (*Mda, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	result, err := utils.FetchSingleModel[Mda](ctx, id)
	if err != nil {
		return nil, err
	}

	// refuse deletion once revenue structure exists under the MDA
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&RevenueSource{}).
		Where("mda_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("mda has revenue sources")
	}
	if err := db.WithContext(ctx).Model(&UserScope{}).
		Where("mda_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("mda has assigned users")
	}

	// db action
	err = db.WithContext(ctx).Delete(result).Error
	if err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisInstance[Mda](id); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Mda](0); err != nil {
		return nil, err
	}
	return result, nil
}

func GetMda(ctx context.Context, id int) (*Mda, error) {
	// find in redis
	result, err := utils.RetrieveRedis[Mda](id)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result, err = utils.FetchSingleModel[Mda](ctx, id)
		if err != nil {
			return nil, err
		}
		if err := utils.StoreRedis[Mda](result, id); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func GetMdas(ctx context.Context, name *string) ([]*Mda, error) {
	db := config.GetDB()
	var results []*Mda

	dbCtx := db.WithContext(ctx).Model(&Mda{})
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ? OR code LIKE ?", "%"+*name+"%", "%"+*name+"%")
	}
	// db query
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func ToggleActiveMda(ctx context.Context, id int, isActive bool) (*Mda, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	result, err := utils.FetchSingleModel[Mda](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Model(result).UpdateColumn("IsActive", isActive).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	actionType := ActionTypeInactive
	if isActive {
		actionType = ActionTypeActive
	}
	if err := createHistory(tx, actionType, id, ReferenceTypeMda, nil, nil, "toggled MDA "+result.Code); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := utils.RemoveRedisInstance[Mda](id); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := utils.RemoveRedisList[Mda](0); err != nil {
		tx.Rollback()
		return nil, err
	}
	return result, tx.Commit().Error
}
