package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UkralStul/posts-service/internal/domain"
	"github.com/UkralStul/posts-service/internal/storage"
)

// Аккаунты с тестовыми данными.
const (
	mockAccount      = "00000000-0000-4000-8000-000000000001"
	mockOtherAccount = "00000000-0000-4000-8000-000000000002"
)

func fillWithMockData(ctx context.Context, s storage.Storage, logger *slog.Logger) error {
	// 1. Создаем пост первого аккаунта.
	post, err := s.CreatePost(ctx, domain.NewPost{
		OwnerID: mockAccount,
		Text:    "Это содержимое тестового поста. Здесь мы обсуждаем REST и Go.",
		Content: domain.ContentNone,
	})
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create post: %w", err)
	}

	// 2. Создаем второй пост и сразу удаляем его, чтобы было что фильтровать по is_deleted.
	deleted, err := s.CreatePost(ctx, domain.NewPost{
		OwnerID: mockAccount,
		Text:    "Этот пост удалён.",
		Content: domain.ContentNone,
	})
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create post: %w", err)
	}
	if _, err := s.SoftDeletePost(ctx, mockAccount, deleted.ID); err != nil {
		return fmt.Errorf("fillWithMockData: failed to delete post: %w", err)
	}

	// 3. Пост другого аккаунта: первому он не виден.
	other, err := s.CreatePost(ctx, domain.NewPost{
		OwnerID: mockOtherAccount,
		Text:    "Пост другого аккаунта.",
		Content: domain.ContentNone,
	})
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create post of other account: %w", err)
	}

	logger.Info("mock data filled",
		"account", mockAccount,
		"post_id", post.ID,
		"deleted_post_id", deleted.ID,
		"other_account_post_id", other.ID,
	)
	return nil
}
