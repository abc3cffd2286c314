package services

import (
	"context"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"github.com/syed-c/foster-care-sub001/internal/apperr"
	"github.com/syed-c/foster-care-sub001/internal/models"
)

// fakeAgencies serves Get from memory. Other methods are not expected to be called.
type fakeAgencies struct {
	IAgencyService
	byID map[string]*models.Agency
}

func newFakeAgencies(agencies ...*models.Agency) *fakeAgencies {
	f := &fakeAgencies{byID: map[string]*models.Agency{}}
	for _, a := range agencies {
		f.byID[a.ID] = a
	}
	return f
}

func (f *fakeAgencies) Get(ctx context.Context, id string) (*models.Agency, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, apperr.NotFound("Agency")
	}
	cp := *a
	return &cp, nil
}

type fakeTaskClient struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (c *fakeTaskClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.tasks = append(c.tasks, task)
	return &asynq.TaskInfo{ID: models.NewID(), Type: task.Type()}, nil
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string, idempotencyKey string) (string, error) {
	args := m.Called(ctx, email, name, metadata, idempotencyKey)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	args := m.Called(ctx, customerID, returnURL)
	return args.String(0), args.Error(1)
}
