package mocks

import (
	"context"
	"time"

	postDomain "github.com/davicafu/postlab/internal/post/domain"
	sharedDomain "github.com/davicafu/postlab/internal/shared/domain"
	"github.com/davicafu/postlab/internal/shared/platform/pagination"
	"github.com/stretchr/testify/mock"
)

// MockPostRepository permite simular fallos del almacenamiento.
type MockPostRepository struct {
	mock.Mock
}

var _ postDomain.PostRepository = (*MockPostRepository)(nil)

func (m *MockPostRepository) Create(ctx context.Context, p *postDomain.Post, newEvent postDomain.EventFactory) error {
	args := m.Called(ctx, p, newEvent)
	return args.Error(0)
}

func (m *MockPostRepository) GetByID(ctx context.Context, id int64) (*postDomain.Post, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*postDomain.Post); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPostRepository) Update(ctx context.Context, p *postDomain.Post, evt sharedDomain.OutboxEvent) error {
	args := m.Called(ctx, p, evt)
	return args.Error(0)
}

func (m *MockPostRepository) DeleteByID(ctx context.Context, id int64, evt sharedDomain.OutboxEvent) error {
	args := m.Called(ctx, id, evt)
	return args.Error(0)
}

func (m *MockPostRepository) Search(ctx context.Context, q pagination.QuerySpec) ([]*postDomain.Post, error) {
	args := m.Called(ctx, q)
	if posts, ok := args.Get(0).([]*postDomain.Post); ok {
		return posts, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPostAnalytics registra los lotes que recibe el log analítico.
type MockPostAnalytics struct {
	mock.Mock
}

var _ postDomain.PostAnalyticsRepository = (*MockPostAnalytics)(nil)

func (m *MockPostAnalytics) LogBatch(ctx context.Context, activity []postDomain.PostActivity) error {
	args := m.Called(ctx, activity)
	return args.Error(0)
}

func (m *MockPostAnalytics) GetDailyActivity(ctx context.Context, start, end time.Time) ([]postDomain.DailyPostActivity, error) {
	args := m.Called(ctx, start, end)
	if rows, ok := args.Get(0).([]postDomain.DailyPostActivity); ok {
		return rows, args.Error(1)
	}
	return nil, args.Error(1)
}
