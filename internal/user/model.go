package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User 是身份提供方持久化的账户
type User struct {
	// ID 是用户主键，使用UUID v7
	ID string `gorm:"primarykey;type:varchar(36)"`

	// Email 统一转为小写后存储
	Email string `gorm:"uniqueIndex;not null;type:varchar(320)"`

	// PasswordHash 是bcrypt哈希，从不对外输出
	PasswordHash string `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate 在插入前分配主键
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID != "" {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	u.ID = id.String()
	return nil
}

// CurrentUser 是一次请求中已认证的操作者，对应 getCurrentUser() 的返回值
type CurrentUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
