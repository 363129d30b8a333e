package metadata

import "time"

// Metadata 是系统级键值对表
type Metadata struct {
	// Key 是元数据的唯一键，例如 "last_reconcile_at"
	Key string `gorm:"primarykey;type:varchar(255)"`

	// Value 存储元数据的值
	Value string `gorm:"type:varchar(255)"`

	UpdatedAt time.Time
}
