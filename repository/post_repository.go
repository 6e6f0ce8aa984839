package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/anonbbs/models"
)

// ErrPostNotFound is returned when no post (or no root, for root lookups) matches.
var ErrPostNotFound = errors.New("post not found")

// PostRepository is the durable store for posts and replies.
type PostRepository interface {
	Insert(ctx context.Context, post *models.Post) (uint, error)
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetRoot(ctx context.Context, id uint) (*models.Post, error)
	ListRoots(ctx context.Context, limit, offset int) ([]models.Post, error)
	ListReplies(ctx context.Context, parentID uint) ([]models.Post, error)
	CountReplies(ctx context.Context, parentID uint) (int64, error)
	NextReplySequence(ctx context.Context, parentID uint) (int, error)
	BumpTimestamp(ctx context.Context, rootID uint, ts int64) error
	AttachmentReferenced(ctx context.Context, stored string) (bool, error)
	// LockRoot loads a root and holds a row lock on it until the surrounding
	// transaction ends. Outside Transaction it behaves like GetRoot.
	LockRoot(ctx context.Context, id uint) (*models.Post, error)
	// Transaction runs fn against a repository bound to one database
	// transaction; fn returning an error rolls everything back.
	Transaction(ctx context.Context, fn func(PostRepository) error) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a gorm backed PostRepository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Insert(ctx context.Context, post *models.Post) (uint, error) {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}
	return post.ID, nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, notFoundOr(err, "get post")
	}
	return &post, nil
}

func (r *postRepository) GetRoot(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Where("id = ? AND parent_id IS NULL", id).
		First(&post).Error
	if err != nil {
		return nil, notFoundOr(err, "get root")
	}
	return &post, nil
}

func (r *postRepository) LockRoot(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	// SQLite drops the FOR UPDATE clause; its single connection already serialises writers.
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND parent_id IS NULL", id).
		First(&post).Error
	if err != nil {
		return nil, notFoundOr(err, "lock root")
	}
	return &post, nil
}

func (r *postRepository) ListRoots(ctx context.Context, limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Where("parent_id IS NULL").
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list roots: %w", err)
	}
	return posts, nil
}

func (r *postRepository) ListReplies(ctx context.Context, parentID uint) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("reply_id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	return posts, nil
}

func (r *postRepository) CountReplies(ctx context.Context, parentID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("parent_id = ?", parentID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count replies: %w", err)
	}
	return n, nil
}

func (r *postRepository) NextReplySequence(ctx context.Context, parentID uint) (int, error) {
	var next int
	err := r.db.WithContext(ctx).
		Raw("SELECT COALESCE(MAX(reply_id), 0) + 1 FROM posts WHERE parent_id = ?", parentID).
		Scan(&next).Error
	if err != nil {
		return 0, fmt.Errorf("next reply sequence: %w", err)
	}
	return next, nil
}

func (r *postRepository) BumpTimestamp(ctx context.Context, rootID uint, ts int64) error {
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ? AND parent_id IS NULL", rootID).
		Update("timestamp", ts).Error
	if err != nil {
		return fmt.Errorf("bump timestamp: %w", err)
	}
	return nil
}

func (r *postRepository) AttachmentReferenced(ctx context.Context, stored string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("attachment = ?", stored).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("attachment referenced: %w", err)
	}
	return n > 0, nil
}

func (r *postRepository) Transaction(ctx context.Context, fn func(PostRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&postRepository{db: tx})
	})
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPostNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
