package models

import "strconv"

// Post is a single board entry. A post with no parent is a thread root and
// carries a display label; a post with a parent is a reply and carries its
// per-thread sequence number in ReplyID.
type Post struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	Content   string  `gorm:"type:text;not null" json:"content"`
	ParentID  *uint   `gorm:"index:idx_parent_id;uniqueIndex:idx_parent_reply,priority:1" json:"parent_id,omitempty"`
	ReplyID   *int    `gorm:"uniqueIndex:idx_parent_reply,priority:2" json:"reply_id,omitempty"`
	DisplayID *string `gorm:"size:16" json:"display_id,omitempty"`
	// Timestamp is unix seconds: last activity for roots, creation time for replies.
	Timestamp  int64   `gorm:"index:idx_timestamp;not null" json:"timestamp"`
	Attachment *string `gorm:"size:1024" json:"attachment,omitempty"`
}

// TableName pins the relation name regardless of the naming strategy.
func (Post) TableName() string { return "posts" }

// IsRoot reports whether the post starts a thread.
func (p Post) IsRoot() bool { return p.ParentID == nil }

// Sequence returns the reply's position within its thread, or 0 for roots.
func (p Post) Sequence() int {
	if p.ReplyID == nil {
		return 0
	}
	return *p.ReplyID
}

// Label is the short heading shown next to the post body.
func (p Post) Label() string {
	if p.IsRoot() {
		if p.DisplayID != nil {
			return *p.DisplayID
		}
		return ""
	}
	return "Reply " + strconv.Itoa(p.Sequence())
}

// AttachmentPath returns the stored attachment path or an empty string.
func (p Post) AttachmentPath() string {
	if p.Attachment == nil {
		return ""
	}
	return *p.Attachment
}
