package models

import (
	"context"
	"errors"
	"time"

	"github.com/ktirsdata/ntr_backend/config"
	"github.com/ktirsdata/ntr_backend/utils"
	"gorm.io/gorm"
)

// UserScope pins an officer account to one MDA and, optionally, one branch.
// A nil BranchId means headquarters-wide access for that MDA.
type UserScope struct {
	ID        int       `gorm:"primary_key" json:"id"`
	ProfileId int       `gorm:"uniqueIndex:idx_scope_profile_mda;not null" json:"profile_id"`
	MdaId     int       `gorm:"uniqueIndex:idx_scope_profile_mda;index;not null" json:"mda_id"`
	BranchId  *int      `json:"branch_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUserScope struct {
	ProfileId int `json:"profile_id" binding:"required"`
	MdaId     int `json:"mda_id" binding:"required"`
	BranchId  int `json:"branch_id"`
}

func (input *NewUserScope) validate(ctx context.Context) error {
	profile, err := utils.FetchSingleModel[Profile](ctx, input.ProfileId)
	if err != nil {
		return errors.New("profile not found")
	}
	if profile.Role != GlobalRoleMdaUser {
		return errors.New("only officer accounts take scopes")
	}
	if err := utils.ValidateResourceId[Mda](ctx, 0, input.MdaId); err != nil {
		return errors.New("mda not found")
	}
	if input.BranchId > 0 {
		if err := utils.ValidateResourceId[MdaBranch](ctx, input.MdaId, input.BranchId); err != nil {
			return errors.New("branch not found for mda")
		}
	}
	return nil
}

// AssignUserScope creates or moves an officer's assignment for an MDA.
func AssignUserScope(ctx context.Context, input *NewUserScope) (*UserScope, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	scope := UserScope{
		ProfileId: input.ProfileId,
		MdaId:     input.MdaId,
		BranchId:  utils.NilIfZero(input.BranchId),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing UserScope
		err := tx.Where("profile_id = ? AND mda_id = ?", input.ProfileId, input.MdaId).Take(&existing).Error
		switch {
		case err == nil:
			scope.ID = existing.ID
			if err := tx.Model(&existing).UpdateColumn("BranchId", scope.BranchId).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&scope).Error; err != nil {
				return err
			}
		default:
			return err
		}
		return createHistory(tx, ActionTypeUpdate, scope.ProfileId, ReferenceTypeProfile, nil, scope, "assigned mda scope")
	})
	if err != nil {
		return nil, err
	}
	return &scope, nil
}

func RemoveUserScope(ctx context.Context, id int) (bool, error) {
	if err := requireAdmin(ctx); err != nil {
		return false, err
	}
	scope, err := utils.FetchSingleModel[UserScope](ctx, id)
	if err != nil {
		return false, err
	}
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&UserScope{}, id).Error; err != nil {
			return err
		}
		return createHistory(tx, ActionTypeDelete, scope.ProfileId, ReferenceTypeProfile, scope, nil, "removed mda scope")
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetUserScopesForSession is the unauthenticated variant used while the
// session context is still being built.
func GetUserScopesForSession(ctx context.Context, profileId int) ([]*UserScope, error) {
	db := config.GetDB()
	var results []*UserScope
	err := db.WithContext(ctx).Model(&UserScope{}).
		Where("profile_id = ?", profileId).Order("id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetUserScopes(ctx context.Context, profileId int) ([]*UserScope, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	db := config.GetDB()
	var results []*UserScope
	err := db.WithContext(ctx).Model(&UserScope{}).
		Where("profile_id = ?", profileId).Order("id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
