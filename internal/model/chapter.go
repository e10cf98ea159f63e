package model

import "time"

// swagger:model Chapter
type Chapter struct {
	ContentBase
	VideoURL      string       `gorm:"size:512" json:"videoUrl,omitempty"`
	VideoKey      string       `gorm:"size:512" json:"-"`
	VideoDuration float64      `gorm:"default:0" json:"videoDuration"` // 秒
	IsFree        bool         `gorm:"default:false" json:"isFree"`
	MaxViews      *int         `json:"maxViews"` // nil 或 0 表示不限次数
	Attachments   []Attachment `gorm:"foreignKey:ChapterID" json:"attachments,omitempty"`
}

func (Chapter) TableName() string {
	return "chapters"
}

// ViewLimit 返回有效的观看次数上限，0 表示不限
func (c *Chapter) ViewLimit() int {
	if c.MaxViews == nil || *c.MaxViews <= 0 {
		return 0
	}
	return *c.MaxViews
}

type Attachment struct {
	UUIDBase
	ChapterID string `gorm:"index;type:varchar(36);not null" json:"chapterId"`
	Name      string `gorm:"size:255;not null" json:"name"`
	URL       string `gorm:"size:512;not null" json:"url"`
	ObjectKey string `gorm:"size:512" json:"-"`
}

func (Attachment) TableName() string {
	return "chapter_attachments"
}

// UserProgress 每个 (用户, 章节) 最多一行，重置时物理删除
type UserProgress struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint      `gorm:"uniqueIndex:idx_progress_user_chapter;not null" json:"userId"`
	ChapterID   string    `gorm:"uniqueIndex:idx_progress_user_chapter;type:varchar(36);not null" json:"chapterId"`
	IsCompleted bool      `gorm:"default:false" json:"isCompleted"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}

// ChapterView 只追加的观看记录，仅用于 maxViews 计数
type ChapterView struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"index:idx_view_user_chapter;not null" json:"userId"`
	ChapterID string    `gorm:"index:idx_view_user_chapter;type:varchar(36);not null" json:"chapterId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (ChapterView) TableName() string {
	return "chapter_views"
}
