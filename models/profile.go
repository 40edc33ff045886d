package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ktirsdata/ntr_backend/config"
	"github.com/ktirsdata/ntr_backend/utils"
	"gorm.io/gorm"
)

// Profile is a console account. Officers additionally carry a UserScope that
// pins them to one MDA (and optionally one branch).
type Profile struct {
	ID        int        `gorm:"primary_key" json:"id"`
	Email     string     `gorm:"uniqueIndex;size:150;not null" json:"email" binding:"required"`
	FullName  string     `gorm:"size:150;not null" json:"full_name" binding:"required"`
	Phone     string     `gorm:"size:20" json:"phone"`
	Password  string     `gorm:"size:100;not null" json:"-"`
	Role      GlobalRole `gorm:"size:20;not null" json:"role"`
	IsActive  *bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProfile struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
	MdaId    int    `json:"mda_id"`
	BranchId int    `json:"branch_id"`
}

type LoginInfo struct {
	Token    string `json:"token"`
	Jwt      string `json:"jwt"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	MdaId    int    `json:"mda_id,omitempty"`
	MdaName  string `json:"mda_name,omitempty"`
	BranchId int    `json:"branch_id,omitempty"`
}

func (profile Profile) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("Profile:" + profile.Email)
}

// Login verifies credentials, stores a session token in Redis and returns it
// together with a signed JWT and the officer's scope.
func Login(ctx context.Context, email string, password string) (*LoginInfo, error) {

	db := config.GetDB()
	var result LoginInfo

	profile := Profile{}

	// get profile info, redis or db
	exists, err := config.GetRedisObject("Profile:"+email, &profile)
	if err != nil {
		return &result, err
	}
	if !exists {
		err = db.WithContext(ctx).Model(&Profile{}).Where("email = ?", email).Take(&profile).Error
		if err != nil {
			return &result, errors.New("invalid email or password")
		}
	}

	// check login credentials; a corrupt stored hash must fail like a mismatch
	err = utils.ComparePassword(profile.Password, password)
	if err != nil {
		return &result, errors.New("invalid email or password")
	}

	if !*profile.IsActive {
		return &result, errors.New("user is disabled")
	}

	// generate token & response
	token := uuid.New()
	result.Token = token.String()
	result.Name = profile.FullName
	result.Role = string(profile.Role)

	if profile.Role == GlobalRoleMdaUser {
		// officers act within their first scope, in assignment order
		var scope UserScope
		err := db.WithContext(ctx).Model(&UserScope{}).
			Where("profile_id = ?", profile.ID).
			Order("id").First(&scope).Error
		if err != nil {
			return nil, errors.New("no MDA assigned to this account")
		}
		mda, err := GetMda(ctx, scope.MdaId)
		if err != nil {
			return nil, err
		}
		result.MdaId = scope.MdaId
		result.MdaName = mda.Name
		result.BranchId = utils.DereferencePtr(scope.BranchId)
	}

	jwtToken, err := utils.JwtGenerate(profile.ID, string(profile.Role))
	if err != nil {
		return nil, err
	}
	result.Jwt = jwtToken

	// session: Token:<uuid> -> email, scope fields resolved again per request
	if err := config.SetRedisValue("Token:"+result.Token, email, utils.GetCacheLifespan()); err != nil {
		return nil, err
	}
	if err := config.SetRedisObject("Profile:"+email, &profile, utils.GetCacheLifespan()); err != nil {
		return nil, err
	}

	return &result, nil
}

func Logout(ctx context.Context) (bool, error) {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return false, errors.New("no session token")
	}
	if err := config.RemoveRedisKey("Token:" + token); err != nil {
		return false, err
	}
	return true, nil
}

// GetProfileByEmail resolves a session's account, redis or db.
func GetProfileByEmail(ctx context.Context, email string) (*Profile, error) {
	profile := Profile{}
	exists, err := config.GetRedisObject("Profile:"+email, &profile)
	if err != nil {
		return nil, err
	}
	if !exists {
		db := config.GetDB()
		if err := db.WithContext(ctx).Model(&Profile{}).Where("email = ?", email).Take(&profile).Error; err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		if err := config.SetRedisObject("Profile:"+email, &profile, utils.GetCacheLifespan()); err != nil {
			return nil, err
		}
	}
	return &profile, nil
}

func (input *NewProfile) validate(ctx context.Context, id int) error {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if !utils.IsValidEmail(email) {
		return errors.New("invalid email")
	}
	if err := utils.ValidateUnique[Profile](ctx, 0, "email", email, id); err != nil {
		return err
	}
	if !GlobalRole(input.Role).Valid() {
		return errors.New("invalid role")
	}
	if len(strings.TrimSpace(input.Phone)) > 0 {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return errors.New("invalid phone number")
		}
	}
	if GlobalRole(input.Role) == GlobalRoleMdaUser {
		if input.MdaId <= 0 {
			return errors.New("mda is required for officer accounts")
		}
		if err := utils.ValidateResourceId[Mda](ctx, 0, input.MdaId); err != nil {
			return errors.New("mda not found")
		}
		if input.BranchId > 0 {
			if err := utils.ValidateResourceId[MdaBranch](ctx, input.MdaId, input.BranchId); err != nil {
				return errors.New("branch not found for mda")
			}
		}
	}
	return nil
}

func CreateProfile(ctx context.Context, input *NewProfile) (*Profile, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	profile := Profile{
		Email:    strings.TrimSpace(strings.ToLower(input.Email)),
		FullName: strings.TrimSpace(input.FullName),
		Phone:    strings.TrimSpace(input.Phone),
		Password: string(hashed),
		Role:     GlobalRole(input.Role),
		IsActive: utils.NewTrue(),
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		if profile.Role == GlobalRoleMdaUser {
			scope := UserScope{
				ProfileId: profile.ID,
				MdaId:     input.MdaId,
				BranchId:  utils.NilIfZero(input.BranchId),
			}
			if err := tx.Create(&scope).Error; err != nil {
				return err
			}
		}
		return createHistory(tx, ActionTypeCreate, profile.ID, ReferenceTypeProfile, nil, nil, "created account "+profile.Email)
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func GetProfiles(ctx context.Context) ([]*Profile, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	db := config.GetDB()
	var results []*Profile
	err := db.WithContext(ctx).Model(&Profile{}).Order("full_name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func ToggleActiveProfile(ctx context.Context, id int, isActive bool) (*Profile, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	result, err := utils.FetchSingleModel[Profile](ctx, id)
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
	if err := createHistory(tx, actionType, id, ReferenceTypeProfile, nil, nil, "toggled account "+result.Email); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := result.RemoveInstanceRedis(); err != nil {
		tx.Rollback()
		return nil, err
	}
	return result, tx.Commit().Error
}
