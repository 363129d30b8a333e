package note

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate 负责自动迁移notes表结构
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Note{}); err != nil {
		return fmt.Errorf("无法迁移note表: %w", err)
	}
	return nil
}
