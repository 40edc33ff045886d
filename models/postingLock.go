package models

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireMonthPostingLock serializes recomputation per summary cell across
// instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB transaction that will do the posting.
func AcquireMonthPostingLock(tx *gorm.DB, mdaId, sourceId, branchScopeKey, year, month int) error {
	lockName := monthLockName(mdaId, sourceId, branchScopeKey, year, month)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire posting lock %s", lockName)
	}
	return nil
}

func ReleaseMonthPostingLock(tx *gorm.DB, mdaId, sourceId, branchScopeKey, year, month int) {
	lockName := monthLockName(mdaId, sourceId, branchScopeKey, year, month)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}

func monthLockName(mdaId, sourceId, branchScopeKey, year, month int) string {
	return fmt.Sprintf("revenue:%d:%d:%d:%d-%02d", mdaId, sourceId, branchScopeKey, year, month)
}
