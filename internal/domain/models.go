package domain

import "time"

// Content - закрытый набор вариантов вложения поста.
type Content string

const (
	ContentNone Content = "None"
)

// Valid сообщает, входит ли вариант в известный набор.
func (c Content) Valid() bool {
	switch c {
	case ContentNone:
		return true
	}
	return false
}

// Post представляет пост пользователя.
// CreatedAt и OwnerID задаются один раз при создании и больше не меняются.
// Непустой DeletedAt означает мягкое удаление.
type Post struct {
	ID        string     `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time  `json:"created_at" gorm:"not null;index"`
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`
	OwnerID   string     `json:"owner_id" gorm:"type:uuid;not null;index"`
	Text      string     `json:"text" gorm:"type:text;not null"`
	Content   Content    `json:"content" gorm:"type:varchar(32);not null"`
}

// IsDeleted - был ли пост удалён.
func (p *Post) IsDeleted() bool {
	return p.DeletedAt != nil
}

// Clone возвращает копию, не разделяющую DeletedAt с оригиналом.
func (p *Post) Clone() *Post {
	c := *p
	if p.DeletedAt != nil {
		d := *p.DeletedAt
		c.DeletedAt = &d
	}
	return &c
}

// NewPost - параметры создания поста.
type NewPost struct {
	OwnerID string
	Text    string
	Content Content
}
