package note

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Note 是笔记的元数据行。正文存放在blob存储中，由 FilePath 指向。
type Note struct {
	// ID 是笔记主键，使用UUID v7，插入时分配
	ID string `gorm:"primarykey;type:varchar(36)"`

	// OwnerID 是创建者的用户ID，所有查询都按它过滤
	OwnerID string `gorm:"index;not null;type:varchar(36)"`

	Title string `gorm:"not null;type:varchar(1024)"`

	// FilePath 是blob存储中的路径，形如 <ownerID>/<token>.md
	FilePath string `gorm:"uniqueIndex;not null;type:varchar(512)"`

	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

// BeforeCreate 在插入前分配主键
func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID != "" {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	n.ID = id.String()
	return nil
}

// WithContent 是带正文的笔记。
// ContentMissing 为true时表示元数据存在但正文缺失或读取失败，Content为空。
type WithContent struct {
	Note
	Content        []byte
	ContentMissing bool
}
