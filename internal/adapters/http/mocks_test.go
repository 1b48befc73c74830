package http_test

import (
	"context"
	"sync"

	"github.com/samirrijal/cafelog/internal/core/domain"
	"github.com/samirrijal/cafelog/internal/core/ports"
)

// ---- Mock repositories ----

type mockCafeRepo struct {
	createFn  func(ctx context.Context, cafe *domain.Cafe) error
	updateFn  func(ctx context.Context, cafe *domain.Cafe) error
	deleteFn  func(ctx context.Context, id string) error
	getByIDFn func(ctx context.Context, id string) (*domain.Cafe, error)
	listFn    func(ctx context.Context, filter domain.CafeFilter) ([]domain.Cafe, error)
	visitedFn func(ctx context.Context) ([]domain.GeoPoint, error)
}

func (m *mockCafeRepo) Create(ctx context.Context, cafe *domain.Cafe) error {
	if m.createFn != nil {
		return m.createFn(ctx, cafe)
	}
	return nil
}
func (m *mockCafeRepo) Update(ctx context.Context, cafe *domain.Cafe) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, cafe)
	}
	return nil
}
func (m *mockCafeRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}
func (m *mockCafeRepo) GetByID(ctx context.Context, id string) (*domain.Cafe, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}
func (m *mockCafeRepo) List(ctx context.Context, filter domain.CafeFilter) ([]domain.Cafe, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}
func (m *mockCafeRepo) VisitedLocations(ctx context.Context) ([]domain.GeoPoint, error) {
	if m.visitedFn != nil {
		return m.visitedFn(ctx)
	}
	return nil, nil
}

type mockPhotoRepo struct {
	mu     sync.Mutex
	photos map[string]*domain.Photo
}

func (m *mockPhotoRepo) Save(_ context.Context, p *domain.Photo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.photos == nil {
		m.photos = make(map[string]*domain.Photo)
	}
	m.photos[p.ID] = p
	return nil
}
func (m *mockPhotoRepo) GetByID(_ context.Context, id string) (*domain.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.photos[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}
func (m *mockPhotoRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.photos[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.photos, id)
	return nil
}
func (m *mockPhotoRepo) DeleteByCafe(_ context.Context, cafeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.photos {
		if p.CafeID == cafeID {
			delete(m.photos, id)
		}
	}
	return nil
}

type mockSearcher struct {
	searchFn func(ctx context.Context, query string) ([]domain.PlacePrediction, error)
}

func (m *mockSearcher) SearchCafes(ctx context.Context, query string) ([]domain.PlacePrediction, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query)
	}
	return nil, nil
}

type mockDispatcher struct {
	got []ports.PhotoUpload
}

func (m *mockDispatcher) DispatchPhoto(_ context.Context, up ports.PhotoUpload) (string, error) {
	m.got = append(m.got, up)
	return "photo-job-1", nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.CafeEvent
}

func (m *mockPublisher) PublishCafeEvent(_ context.Context, ev *domain.CafeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *ev)
	return nil
}

func (m *mockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}
