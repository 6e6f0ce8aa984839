package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/anonbbs/attachments"
	"github.com/cppla/anonbbs/models"
	"github.com/cppla/anonbbs/repository"
	"github.com/cppla/anonbbs/utils"
)

// FileStore persists accepted attachments. Save must make the file durable
// before returning; Remove undoes a Save whose post was never committed.
type FileStore interface {
	Save(ctx context.Context, baseName string, a *attachments.Accepted) (string, error)
	Remove(stored string) error
}

// staleLister is implemented by stores that can enumerate old files.
type staleLister interface {
	Stale(cutoff time.Time) ([]string, error)
}

// ThreadSummary is one feed entry.
type ThreadSummary struct {
	Root       models.Post `json:"post"`
	ReplyCount int64       `json:"reply_count"`
}

// ThreadPage is one window of the feed, most recently bumped first.
type ThreadPage struct {
	Page    int             `json:"page"`
	Size    int             `json:"page_size"`
	Threads []ThreadSummary `json:"items"`
}

// HasPrev reports whether a previous page exists.
func (p *ThreadPage) HasPrev() bool { return p.Page > 1 }

// PrevPage is the previous page number (never below 1).
func (p *ThreadPage) PrevPage() int { return ClampPage(p.Page - 1) }

// NextPage is always offered, even past the last thread.
func (p *ThreadPage) NextPage() int {
	if p.Page == math.MaxInt {
		return p.Page
	}
	return p.Page + 1
}

// Thread is a root with its replies, newest reply first.
type Thread struct {
	Root    *models.Post  `json:"post"`
	Replies []models.Post `json:"replies"`
}

// ThreadResult is the outcome of CreateThread. Rejection is set when an
// attachment was offered but dropped.
type ThreadResult struct {
	Post      *models.Post
	Rejection *attachments.RejectionError
}

// BoardService applies the posting, threading and feed rules on top of a PostRepository.
type BoardService struct {
	posts     repository.PostRepository
	files     FileStore
	validator *attachments.Validator
	now       func() time.Time
	displayID func() string
	pageSize  int
	strict    bool
	log       *zap.Logger
}

// Option customises a BoardService.
type Option func(*BoardService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(s *BoardService) { s.now = now } }

// WithDisplayIDs overrides the label generator.
func WithDisplayIDs(gen func() string) Option { return func(s *BoardService) { s.displayID = gen } }

// WithPageSize sets the default feed page size.
func WithPageSize(size int) Option { return func(s *BoardService) { s.pageSize = size } }

// WithStrictAttachments makes a rejected attachment fail the whole thread.
func WithStrictAttachments(strict bool) Option { return func(s *BoardService) { s.strict = strict } }

// WithValidator replaces the default attachment validator.
func WithValidator(v *attachments.Validator) Option { return func(s *BoardService) { s.validator = v } }

// WithLogger sets the logger used for dropped attachments and store failures.
func WithLogger(l *zap.Logger) Option { return func(s *BoardService) { s.log = l } }

// NewBoardService wires a board. files may be nil, in which case every
// attachment is treated as rejected.
func NewBoardService(posts repository.PostRepository, files FileStore, opts ...Option) *BoardService {
	s := &BoardService{
		posts:     posts,
		files:     files,
		validator: attachments.NewValidator(attachments.DefaultMaxBytes),
		now:       time.Now,
		displayID: NewDisplayID,
		pageSize:  DefaultPageSize,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PageSize is the default feed page size.
func (s *BoardService) PageSize() int { return clampSize(s.pageSize, DefaultPageSize) }

// StrictAttachments reports whether rejected attachments abort CreateThread.
func (s *BoardService) StrictAttachments() bool { return s.strict }

// CreateThread stores a new root post. An attachment that fails validation
// is dropped and reported in ThreadResult.Rejection, unless the service is
// strict, in which case nothing is written and ErrAttachmentRejected is returned.
func (s *BoardService) CreateThread(ctx context.Context, content string, upload *attachments.Upload) (*ThreadResult, error) {
	body := utils.CleanContent(content)
	if body == "" {
		return nil, fmt.Errorf("%w: content is empty", ErrValidation)
	}

	displayID := s.displayID()
	result := &ThreadResult{}

	var stored string
	if !upload.Empty() {
		var err error
		stored, err = s.storeAttachment(ctx, displayID, upload)
		if err != nil {
			var rej *attachments.RejectionError
			rejected := errors.As(err, &rej)
			if !rejected {
				s.log.Error("attachment could not be stored", zap.String("filename", upload.Filename), zap.Error(err))
			}
			if s.strict {
				if rejected {
					return nil, rej
				}
				return nil, storeError("save attachment", err)
			}
			if !rejected {
				rej = &attachments.RejectionError{Filename: upload.Filename, Reason: "file could not be stored"}
			}
			s.log.Warn("attachment dropped", zap.String("filename", rej.Filename), zap.String("reason", rej.Reason))
			result.Rejection = rej
			stored = ""
		}
	}

	post := &models.Post{
		Content:   body,
		DisplayID: &displayID,
		Timestamp: s.now().Unix(),
	}
	if stored != "" {
		post.Attachment = &stored
	}

	if _, err := s.posts.Insert(ctx, post); err != nil {
		if stored != "" {
			if rmErr := s.files.Remove(stored); rmErr != nil {
				s.log.Warn("remove orphaned upload", zap.String("path", stored), zap.Error(rmErr))
			}
		}
		s.log.Error("create thread failed", zap.Error(err))
		return nil, storeError("insert thread", err)
	}
	result.Post = post
	return result, nil
}

func (s *BoardService) storeAttachment(ctx context.Context, displayID string, upload *attachments.Upload) (string, error) {
	accepted, err := s.validator.Validate(upload)
	if err != nil {
		return "", err
	}
	if s.files == nil {
		return "", &attachments.RejectionError{Filename: accepted.Filename, Reason: "uploads are disabled"}
	}
	return s.files.Save(ctx, displayID, accepted)
}

// CreateReply appends a reply to the root parentID and bumps the root. The
// sequence read, the insert and the bump share one transaction with the root
// row locked, so concurrent replies get distinct consecutive numbers and a
// failure leaves neither write behind.
func (s *BoardService) CreateReply(ctx context.Context, parentID uint, content string) (*models.Post, error) {
	body := utils.CleanContent(content)
	if body == "" {
		return nil, fmt.Errorf("%w: content is empty", ErrValidation)
	}

	var reply *models.Post
	err := s.posts.Transaction(ctx, func(tx repository.PostRepository) error {
		if _, err := tx.LockRoot(ctx, parentID); err != nil {
			return err
		}
		seq, err := tx.NextReplySequence(ctx, parentID)
		if err != nil {
			return err
		}
		now := s.now().Unix()
		pid := parentID
		candidate := &models.Post{
			Content:   body,
			ParentID:  &pid,
			ReplyID:   &seq,
			Timestamp: now,
		}
		if _, err := tx.Insert(ctx, candidate); err != nil {
			return err
		}
		if err := tx.BumpTimestamp(ctx, parentID, now); err != nil {
			return err
		}
		reply = candidate
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, fmt.Errorf("%w: thread %d", ErrNotFound, parentID)
		}
		s.log.Error("create reply failed", zap.Uint("parent_id", parentID), zap.Error(err))
		return nil, storeError("create reply", err)
	}
	return reply, nil
}

// ListThreadsPage returns one feed page. Pages below 1 are treated as 1 and
// a size <= 0 selects the configured default. Reply counts are computed per
// call, nothing is cached.
func (s *BoardService) ListThreadsPage(ctx context.Context, page, size int) (*ThreadPage, error) {
	page = ClampPage(page)
	size = clampSize(size, s.pageSize)

	offset, ok := PageOffset(page, size)
	if !ok {
		return &ThreadPage{Page: page, Size: size, Threads: []ThreadSummary{}}, nil
	}
	roots, err := s.posts.ListRoots(ctx, size, offset)
	if err != nil {
		s.log.Error("list threads failed", zap.Int("page", page), zap.Error(err))
		return nil, storeError("list threads", err)
	}

	threads := make([]ThreadSummary, 0, len(roots))
	for _, root := range roots {
		n, err := s.posts.CountReplies(ctx, root.ID)
		if err != nil {
			s.log.Error("count replies failed", zap.Uint("post_id", root.ID), zap.Error(err))
			return nil, storeError("count replies", err)
		}
		threads = append(threads, ThreadSummary{Root: root, ReplyCount: n})
	}
	return &ThreadPage{Page: page, Size: size, Threads: threads}, nil
}

// GetThread returns a root and its replies ordered by sequence, newest first.
// An id that names a reply rather than a root is reported as not found.
func (s *BoardService) GetThread(ctx context.Context, rootID uint) (*Thread, error) {
	root, err := s.posts.GetRoot(ctx, rootID)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, fmt.Errorf("%w: thread %d", ErrNotFound, rootID)
		}
		s.log.Error("get thread failed", zap.Uint("post_id", rootID), zap.Error(err))
		return nil, storeError("get thread", err)
	}

	replies, err := s.posts.ListReplies(ctx, rootID)
	if err != nil {
		s.log.Error("list replies failed", zap.Uint("post_id", rootID), zap.Error(err))
		return nil, storeError("list replies", err)
	}
	return &Thread{Root: root, Replies: replies}, nil
}

// SweepOrphanUploads removes stored files older than minAge that no post
// references, such as a file saved just before the process died. Files
// younger than minAge may belong to a CreateThread still in flight.
func (s *BoardService) SweepOrphanUploads(ctx context.Context, minAge time.Duration) (int, error) {
	lister, ok := s.files.(staleLister)
	if !ok {
		return 0, nil
	}
	stale, err := lister.Stale(s.now().Add(-minAge))
	if err != nil {
		return 0, storeError("list uploads", err)
	}

	removed := 0
	for _, stored := range stale {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		used, err := s.posts.AttachmentReferenced(ctx, stored)
		if err != nil {
			return removed, storeError("check upload", err)
		}
		if used {
			continue
		}
		if err := s.files.Remove(stored); err != nil {
			s.log.Warn("remove orphaned upload", zap.String("path", stored), zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.log.Info("removed orphaned uploads", zap.Int("count", removed))
	}
	return removed, nil
}
