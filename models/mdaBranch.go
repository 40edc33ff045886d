package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ktirsdata/ntr_backend/config"
	"github.com/ktirsdata/ntr_backend/utils"
)

// MdaBranch is an optional sub-location of an MDA. Revenue recorded without a
// branch belongs to the MDA's headquarters partition.
type MdaBranch struct {
	ID        int       `gorm:"primary_key" json:"id"`
	MdaId     int       `gorm:"index;not null" json:"mda_id"`
	Name      string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewMdaBranch struct {
	MdaId int    `json:"mda_id" binding:"required"`
	Name  string `json:"name" binding:"required"`
}

func (input *NewMdaBranch) validate(ctx context.Context, id int) error {
	if err := utils.ValidateResourceId[Mda](ctx, 0, input.MdaId); err != nil {
		return errors.New("mda not found")
	}
	if id > 0 {
		if err := utils.ValidateResourceId[MdaBranch](ctx, input.MdaId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[MdaBranch](ctx, input.MdaId, "name", strings.TrimSpace(input.Name), id); err != nil {
		return err
	}
	return nil
}

func CreateMdaBranch(ctx context.Context, input *NewMdaBranch) (*MdaBranch, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	branch := MdaBranch{
		MdaId:    input.MdaId,
		Name:     strings.TrimSpace(input.Name),
		IsActive: utils.NewTrue(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&branch).Error
	if err != nil {
		return nil, err
	}
	return &branch, nil
}

func UpdateMdaBranch(ctx context.Context, id int, input *NewMdaBranch) (*MdaBranch, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	branch, err := utils.FetchModel[MdaBranch](ctx, input.MdaId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(branch).Updates(map[string]interface{}{
		"Name": strings.TrimSpace(input.Name),
	}).Error
	if err != nil {
		return nil, err
	}
	return branch, nil
}

func DeleteMdaBranch(ctx context.Context, id int) (*MdaBranch, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	result, err := utils.FetchSingleModel[MdaBranch](ctx, id)
	if err != nil {
		return nil, err
	}

	// branches with recorded revenue are kept for reporting integrity
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&RevenueDailyEntry{}).
		Where("branch_scope_key = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("branch has revenue records")
	}
	if err := db.WithContext(ctx).Model(&MonthlySummary{}).
		Where("branch_scope_key = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("branch has revenue records")
	}

	err = db.WithContext(ctx).Delete(result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

func GetMdaBranches(ctx context.Context, mdaId int) ([]*MdaBranch, error) {
	if mdaId <= 0 {
		return nil, errors.New("mda id is required")
	}
	db := config.GetDB()
	var results []*MdaBranch
	err := db.WithContext(ctx).
		Where("mda_id = ?", mdaId).
		Order("name").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
