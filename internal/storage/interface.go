package storage

import (
	"context"

	"github.com/UkralStul/posts-service/internal/domain"
)

// Storage определяет контракт для хранилищ постов.
//
// Любая возвращаемая ошибка - *twoface.Error. Отсутствие поста - это (nil, nil),
// а не ошибка.
type Storage interface {
	CreatePost(ctx context.Context, post domain.NewPost) (*domain.Post, error)
	// ListPosts возвращает посты по возрастанию CreatedAt (при равенстве - по ID),
	// не больше filter.EffectiveLimit().
	ListPosts(ctx context.Context, filter domain.PostFilter) ([]*domain.Post, error)
	// GetPost ищет пост строго по паре владелец + id.
	GetPost(ctx context.Context, ownerID, id string) (*domain.Post, error)
	// SoftDeletePost проставляет DeletedAt активному посту. Уже удалённый пост
	// возвращается без изменений.
	SoftDeletePost(ctx context.Context, ownerID, id string) (*domain.Post, error)
}

// Logger - то, что хранилища ожидают от логгера. *slog.Logger подходит.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
