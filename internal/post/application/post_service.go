package application

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/davicafu/postlab/internal/post/domain"
	sharedDomain "github.com/davicafu/postlab/internal/shared/domain"
	sharedCache "github.com/davicafu/postlab/internal/shared/infra/platform/cache"
	"github.com/davicafu/postlab/internal/shared/platform/pagination"
	"github.com/google/uuid"
)

const (
	cacheTTLSeconds = 60
	getAttempts     = 3
	getRetryDelay   = 100 * time.Millisecond
)

// PostService define los casos de uso relacionados con Post.
type PostService struct {
	repo    domain.PostRepository
	cache   sharedCache.Cache
	planner *pagination.Planner[*domain.Post]
	log     *zap.Logger
}

// NewPostService constructor. cache puede ser nil.
func NewPostService(repo domain.PostRepository, cache sharedCache.Cache, log *zap.Logger) *PostService {
	return &PostService{
		repo:    repo,
		cache:   cache,
		planner: domain.NewPlanner(),
		log:     log,
	}
}

func outboxEvent(p *domain.Post, eventType string, payload interface{}) sharedDomain.OutboxEvent {
	return sharedDomain.NewOutboxEvent(domain.PostAggregateType, strconv.FormatInt(p.ID, 10), eventType, payload)
}

func (s *PostService) CreatePost(ctx context.Context, authorID uuid.UUID, in domain.PostInput) (*domain.Post, error) {
	post, err := domain.NewPost(authorID, in)
	if err != nil {
		return nil, err
	}

	// el id lo asigna el repositorio; el evento se construye después
	err = s.repo.Create(ctx, post, func(p *domain.Post) sharedDomain.OutboxEvent {
		return outboxEvent(p, domain.PostCreated, p.CreatedEvent())
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Post created", zap.Int64("post_id", post.ID), zap.String("author_id", authorID.String()))
	sharedCache.AsyncCacheSet(s.cache, domain.CacheKeyByID(post.ID), post, cacheTTLSeconds, s.log)
	return post, nil
}

// GetPost obtiene un post (primero intenta desde cache).
func (s *PostService) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	// 1. Intentar cache
	if s.cache != nil {
		var p domain.Post
		if ok, err := s.cache.Get(ctx, domain.CacheKeyByID(id), &p); err != nil {
			s.log.Debug("Cache read failed", zap.Int64("post_id", id), zap.Error(err))
		} else if ok {
			return &p, nil
		}
	}

	// 2. Ir al repo con reintentos; not found no se reintenta
	post, err := backoff.Retry(ctx, func() (*domain.Post, error) {
		p, err := s.repo.GetByID(ctx, id)
		if errors.Is(err, domain.ErrPostNotFound) {
			return nil, backoff.Permanent(err)
		}
		return p, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(getRetryDelay)),
		backoff.WithMaxTries(getAttempts),
	)
	if err != nil {
		return nil, err
	}

	// 3. Actualizar cache en background sin bloquear la respuesta
	sharedCache.AsyncCacheSet(s.cache, domain.CacheKeyByID(post.ID), post, cacheTTLSeconds, s.log)
	return post, nil
}

// getOwned devuelve el post solo si pertenece a authorID.
func (s *PostService) getOwned(ctx context.Context, id int64, authorID uuid.UUID) (*domain.Post, error) {
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != authorID {
		return nil, domain.ErrPostNotFound
	}
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, id int64, authorID uuid.UUID, patch domain.PostPatch) (*domain.Post, error) {
	post, err := s.getOwned(ctx, id, authorID)
	if err != nil {
		return nil, err
	}
	if err := post.Apply(patch); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, post, outboxEvent(post, domain.PostUpdated, post.UpdatedEvent())); err != nil {
		return nil, err
	}

	s.log.Info("Post updated", zap.Int64("post_id", post.ID))
	sharedCache.AsyncCacheSet(s.cache, domain.CacheKeyByID(post.ID), post, cacheTTLSeconds, s.log)
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, id int64, authorID uuid.UUID) error {
	post, err := s.getOwned(ctx, id, authorID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteByID(ctx, id, outboxEvent(post, domain.PostDeleted, post.DeletedEvent())); err != nil {
		return err
	}

	s.log.Info("Post deleted", zap.Int64("post_id", id))
	sharedCache.AsyncCacheDelete(s.cache, domain.CacheKeyByID(id), s.log)
	return nil
}

// SearchPosts devuelve una página keyset de posts que cumplen el filtro.
func (s *PostService) SearchPosts(ctx context.Context, filter domain.SearchFilter, req pagination.Request) (*pagination.Page[*domain.Post], error) {
	return s.search(ctx, filter.Criteria(), req)
}

// SearchUserPosts restringe la búsqueda a los posts de userID, ignorando
// los autores que traiga el filtro.
func (s *PostService) SearchUserPosts(ctx context.Context, userID uuid.UUID, filter domain.SearchFilter, req pagination.Request) (*pagination.Page[*domain.Post], error) {
	filter.AuthorIDs = nil
	return s.search(ctx, sharedDomain.And(domain.AuthorCriteria{AuthorID: userID}, filter.Criteria()), req)
}

func (s *PostService) search(ctx context.Context, base sharedDomain.Criteria, req pagination.Request) (*pagination.Page[*domain.Post], error) {
	page, err := s.planner.Paginate(ctx, req, base, s.repo.Search)
	if err != nil {
		if pagination.IsClientError(err) {
			s.log.Debug("Rejected pagination request", zap.String("code", pagination.Code(err)), zap.Error(err))
		} else {
			s.log.Error("Search posts failed", zap.Error(err))
		}
		return nil, err
	}
	return page, nil
}
