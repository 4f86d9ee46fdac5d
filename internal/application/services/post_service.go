package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pairbook/core/internal/domain/entities"
	"github.com/pairbook/core/internal/infrastructure/logger"
	"github.com/pairbook/core/internal/ports"
)

// CreatePostRequest carries the fields for a new wall post. The file id
// is an opaque reference into the external media store.
type CreatePostRequest struct {
	Caption string `json:"caption"`
	FileID  string `json:"file_id" validate:"required"`
}

// PostService handles memory-wall posts.
type PostService struct {
	posts  ports.PostRepository
	logger *logger.Logger
}

// NewPostService creates a new post service.
func NewPostService(posts ports.PostRepository, logger *logger.Logger) *PostService {
	return &PostService{
		posts:  posts,
		logger: logger,
	}
}

// CreatePost adds a post to the pairing's wall.
func (s *PostService) CreatePost(ctx context.Context, pairingID, authorID string, req CreatePostRequest) (*entities.Post, error) {
	post := &entities.Post{
		AuthorID:  authorID,
		Caption:   req.Caption,
		FileID:    req.FileID,
		Likes:     0,
		LikedBy:   []string{},
		CreatedAt: time.Now().UTC(),
	}

	id, err := s.posts.Add(ctx, pairingID, post)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	post.ID = id

	s.logger.Info("Post created", "pairing_id", pairingID, "post_id", id, "author_id", authorID)

	return post, nil
}

// ListPosts returns the wall, newest post first.
func (s *PostService) ListPosts(ctx context.Context, pairingID string) ([]*entities.Post, error) {
	posts, err := s.posts.List(ctx, pairingID)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// ToggleLike likes a post on behalf of the user, or withdraws the user's
// existing like. Only the like fields are persisted.
func (s *PostService) ToggleLike(ctx context.Context, pairingID, postID, userID string) (*entities.Post, error) {
	post, err := s.posts.Get(ctx, pairingID, postID)
	if err != nil {
		return nil, err
	}

	post.ToggleLike(userID)

	if err := s.posts.SetLikes(ctx, pairingID, postID, post.Likes, post.LikedBy); err != nil {
		return nil, fmt.Errorf("persist like: %w", err)
	}
	return post, nil
}

// DeletePost removes a post from the wall.
func (s *PostService) DeletePost(ctx context.Context, pairingID, id string) error {
	if _, err := s.posts.Get(ctx, pairingID, id); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, pairingID, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}
