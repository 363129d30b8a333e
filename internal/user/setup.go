package user

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate 负责自动迁移users表结构
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}); err != nil {
		return fmt.Errorf("无法迁移user表: %w", err)
	}
	return nil
}
