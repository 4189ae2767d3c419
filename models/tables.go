package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound is returned by lookups that matched no row.
var ErrNotFound = errors.New("models: resource not found")

// NotFound maps gorm's missing-record error onto ErrNotFound and leaves other errors alone.
func NotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null;size:150" json:"username"`
	FirstName    string    `gorm:"size:150" json:"first_name"`
	LastName     string    `gorm:"size:150" json:"last_name"`
	Email        string    `gorm:"size:254" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"` // json:"-" keeps the hash out of any serialized output
	IsStaff      bool      `gorm:"default:false" json:"is_staff"`
	CreatedAt    time.Time `json:"created_at"`
}

// DisplayName is the full name when one was given, the username otherwise.
func (u User) DisplayName() string {
	full := u.FirstName
	if u.LastName != "" {
		if full != "" {
			full += " "
		}
		full += u.LastName
	}
	if full == "" {
		return u.Username
	}
	return full
}

type Group struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string `gorm:"not null;size:200" json:"title"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"` // immutable after creation
	Description string `gorm:"type:text" json:"description"`
}

type Post struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	PubDate  time.Time `gorm:"autoCreateTime;index" json:"pub_date"` // set once on insert
	AuthorID uint      `gorm:"not null;index" json:"author_id"`
	Author   User      `json:"author"`
	GroupID  *uint     `gorm:"index" json:"group_id,omitempty"` // optional
	Group    *Group    `json:"group,omitempty"`
	Image    string    `json:"image"` // storage reference, empty when there is no image
	Comments []Comment `json:"comments,omitempty"`
}

type Comment struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID   uint      `gorm:"not null;index" json:"post_id"`
	AuthorID uint      `gorm:"not null;index" json:"author_id"`
	Author   User      `json:"author"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	Created  time.Time `gorm:"autoCreateTime;index" json:"created"`
}

// Follow is a subscription of User (the follower) to Author.
// The pair is unique and a user can never follow themselves.
type Follow struct {
	ID       uint `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID   uint `gorm:"not null;uniqueIndex:unique_list" json:"user_id"`
	User     User `json:"user"`
	AuthorID uint `gorm:"not null;uniqueIndex:unique_list;index;check:user_id <> author_id" json:"author_id"`
	Author   User `json:"author"`
}
