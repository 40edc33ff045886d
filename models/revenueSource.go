package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ktirsdata/ntr_backend/config"
	"github.com/ktirsdata/ntr_backend/utils"
)

// RevenueSource is one collectible line item under an MDA (a levy, fee,
// license class and so on). Codes are unique within the MDA, not globally.
type RevenueSource struct {
	ID        int       `gorm:"primary_key" json:"id"`
	MdaId     int       `gorm:"uniqueIndex:idx_source_mda_code;index;not null" json:"mda_id"`
	Code      string    `gorm:"uniqueIndex:idx_source_mda_code;size:30;not null" json:"code" binding:"required"`
	Name      string    `gorm:"index;size:150;not null" json:"name" binding:"required"`
	Category  string    `gorm:"size:100" json:"category"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewRevenueSource struct {
	MdaId    int    `json:"mda_id" binding:"required"`
	Code     string `json:"code" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Category string `json:"category"`
}

func (input *NewRevenueSource) validate(ctx context.Context, id int) error {
	if err := utils.ValidateResourceId[Mda](ctx, 0, input.MdaId); err != nil {
		return errors.New("mda not found")
	}
	if id > 0 {
		if err := utils.ValidateResourceId[RevenueSource](ctx, input.MdaId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[RevenueSource](ctx, input.MdaId, "code", strings.TrimSpace(input.Code), id); err != nil {
		return err
	}
	return nil
}

func CreateRevenueSource(ctx context.Context, input *NewRevenueSource) (*RevenueSource, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	source := RevenueSource{
		MdaId:    input.MdaId,
		Code:     strings.TrimSpace(input.Code),
		Name:     strings.TrimSpace(input.Name),
		Category: strings.TrimSpace(input.Category),
		IsActive: utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&source).Error
	if err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[RevenueSource](source.MdaId); err != nil {
		return nil, err
	}
	return &source, nil
}

func UpdateRevenueSource(ctx context.Context, id int, input *NewRevenueSource) (*RevenueSource, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	source, err := utils.FetchModel[RevenueSource](ctx, input.MdaId, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(source).Updates(map[string]interface{}{
		"Code":     strings.TrimSpace(input.Code),
		"Name":     strings.TrimSpace(input.Name),
		"Category": strings.TrimSpace(input.Category),
	}).Error
	if err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisInstance[RevenueSource](id); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[RevenueSource](source.MdaId); err != nil {
		return nil, err
	}
	return source, nil
}

func DeleteRevenueSource(ctx context.Context, id int) (*RevenueSource, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	result, err := utils.FetchSingleModel[RevenueSource](ctx, id)
	if err != nil {
		return nil, err
	}

	// refuse deletion once revenue has been recorded against the source
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&RevenueDailyEntry{}).
		Where("revenue_source_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("revenue source has daily entries recorded")
	}
	if err := db.WithContext(ctx).Model(&MonthlySummary{}).
		Where("revenue_source_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("revenue source has monthly summaries recorded")
	}

	if err := db.WithContext(ctx).Delete(&RevenueSource{}, id).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisInstance[RevenueSource](id); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[RevenueSource](result.MdaId); err != nil {
		return nil, err
	}
	return result, nil
}

func GetRevenueSource(ctx context.Context, id int) (*RevenueSource, error) {
	result, err := utils.RetrieveRedis[RevenueSource](id)
	if err != nil {
		return nil, err
	}
	if result != nil {
		return result, nil
	}
	result, err = utils.FetchSingleModel[RevenueSource](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := utils.StoreRedis[RevenueSource](result, id); err != nil {
		return nil, err
	}
	return result, nil
}

func GetRevenueSources(ctx context.Context, mdaId int) ([]*RevenueSource, error) {
	db := config.GetDB()
	var results []*RevenueSource
	err := db.WithContext(ctx).Model(&RevenueSource{}).
		Where("mda_id = ?", mdaId).Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func ToggleActiveRevenueSource(ctx context.Context, id int, isActive bool) (*RevenueSource, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	result, err := utils.FetchSingleModel[RevenueSource](ctx, id)
	if err != nil {
		return nil, err
	}

	// db action
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
	if err := createHistory(tx, actionType, id, ReferenceTypeRevenueSource, nil, nil, "toggled revenue source "+result.Code); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := utils.RemoveRedisInstance[RevenueSource](id); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := utils.RemoveRedisList[RevenueSource](result.MdaId); err != nil {
		tx.Rollback()
		return nil, err
	}
	return result, tx.Commit().Error
}
