package models

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/ktirsdata/ntr_backend/config"
	"github.com/ktirsdata/ntr_backend/utils"
	"gorm.io/gorm"
)

type History struct {
	ID            int       `gorm:"primary_key" json:"id"`
	MdaId         int       `gorm:"index" json:"mda_id"`
	ActionType    string    `gorm:"size:10;not null" json:"action_type" binding:"required"`
	Before        string    `gorm:"type:text" json:"before"`
	After         string    `gorm:"type:text" json:"after"`
	Description   string    `gorm:"type:text;not null" json:"description"`
	ReferenceID   int       `gorm:"index" json:"reference_id"`
	ReferenceType string    `gorm:"size:255" json:"reference_type"`
	RevenueYear   int       `gorm:"index" json:"revenue_year"`
	RevenueMonth  int       `json:"revenue_month"`
	UserId        int       `gorm:"index;not null" json:"user_id"`
	UserName      string    `gorm:"size:100" json:"user_name"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// createHistory writes an audit row inside the caller's transaction so the
// audit trail and the revenue write commit or roll back together.
func createHistory(tx *gorm.DB,
	actionType string,
	referenceId int,
	referenceType string,
	before interface{},
	after interface{},
	description string) (err error) {

	var history History

	b, _ := json.Marshal(before)
	a, _ := json.Marshal(after)

	ctx := tx.Statement.Context
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return errors.New("user id is required")
	}
	userName, ok := utils.GetUserNameFromContext(ctx)
	if !ok {
		return errors.New("user name is required")
	}
	mdaId, _ := utils.GetMdaIdFromContext(ctx)

	history.MdaId = mdaId
	history.ActionType = actionType
	history.Before = string(b)
	history.After = string(a)
	history.Description = description
	history.ReferenceID = referenceId
	history.ReferenceType = referenceType
	history.UserId = userId
	history.UserName = userName

	err = tx.Create(&history).Error
	return err
}

// createRevenueHistory tags the audit row with the reporting period so the
// admin History page can filter by year/month.
func createRevenueHistory(tx *gorm.DB,
	actionType string,
	referenceId int,
	referenceType string,
	mdaId int,
	year int,
	month int,
	before interface{},
	after interface{},
	description string) (err error) {

	b, _ := json.Marshal(before)
	a, _ := json.Marshal(after)

	ctx := tx.Statement.Context
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return errors.New("user id is required")
	}
	userName, ok := utils.GetUserNameFromContext(ctx)
	if !ok {
		return errors.New("user name is required")
	}

	history := History{
		MdaId:         mdaId,
		ActionType:    actionType,
		Before:        string(b),
		After:         string(a),
		Description:   description,
		ReferenceID:   referenceId,
		ReferenceType: referenceType,
		RevenueYear:   year,
		RevenueMonth:  month,
		UserId:        userId,
		UserName:      userName,
	}
	return tx.Create(&history).Error
}

type HistoryFilter struct {
	MdaId    int    `form:"mda_id"`
	Year     int    `form:"year"`
	Month    int    `form:"month"`
	Search   string `form:"search"`
	SortBy   string `form:"sort_by"`
	SortDir  string `form:"sort_dir"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

type HistoryPage struct {
	Records    []*History `json:"records"`
	TotalCount int64      `json:"total_count"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
}

const maxHistoryPageSize = 100

var historySortColumns = map[string]string{
	"created_at":   "created_at",
	"user_name":    "user_name",
	"action_type":  "action_type",
	"revenue_year": "revenue_year",
}

// GetHistoryPage serves the admin History screen: filterable, searchable,
// sorted, paginated audit records.
func GetHistoryPage(ctx context.Context, filter *HistoryFilter) (*HistoryPage, error) {
	db := config.GetDB()

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 25
	}
	if pageSize > maxHistoryPageSize {
		pageSize = maxHistoryPageSize
	}

	dbCtx := db.WithContext(ctx).Model(&History{})
	if filter.MdaId > 0 {
		dbCtx = dbCtx.Where("mda_id = ?", filter.MdaId)
	}
	if filter.Year > 0 {
		dbCtx = dbCtx.Where("revenue_year = ?", filter.Year)
	}
	if filter.Month >= 1 && filter.Month <= 12 {
		dbCtx = dbCtx.Where("revenue_month = ?", filter.Month)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + s + "%"
		dbCtx = dbCtx.Where("description LIKE ? OR user_name LIKE ?", like, like)
	}

	var total int64
	if err := dbCtx.Count(&total).Error; err != nil {
		return nil, err
	}

	sortCol, ok := historySortColumns[filter.SortBy]
	if !ok {
		sortCol = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(filter.SortDir, "asc") {
		dir = "ASC"
	}

	var records []*History
	err := dbCtx.Order(sortCol + " " + dir).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	return &HistoryPage{
		Records:    records,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}
