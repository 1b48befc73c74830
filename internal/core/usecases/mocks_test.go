package usecases_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/samirrijal/cafelog/internal/core/domain"
	"github.com/samirrijal/cafelog/internal/core/ports"
)

// --- Mock CafeRepository ---

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

// memCafeRepo is a tiny working store for flows that span several calls.
type memCafeRepo struct {
	mu    sync.Mutex
	cafes map[string]domain.Cafe
	order []string
}

func newMemCafeRepo(cafes ...domain.Cafe) *memCafeRepo {
	r := &memCafeRepo{cafes: map[string]domain.Cafe{}}
	for _, c := range cafes {
		_ = r.Create(context.Background(), &c)
	}
	return r
}

func (r *memCafeRepo) Create(_ context.Context, cafe *domain.Cafe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cafes[cafe.ID] = *cafe
	r.order = append([]string{cafe.ID}, r.order...)
	return nil
}

func (r *memCafeRepo) Update(_ context.Context, cafe *domain.Cafe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cafes[cafe.ID]; !ok {
		return domain.ErrNotFound
	}
	r.cafes[cafe.ID] = *cafe
	return nil
}

func (r *memCafeRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cafes[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.cafes, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *memCafeRepo) GetByID(_ context.Context, id string) (*domain.Cafe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cafes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r *memCafeRepo) List(_ context.Context, f domain.CafeFilter) ([]domain.Cafe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Cafe
	q := strings.ToLower(f.Query)
	for _, id := range r.order {
		c := r.cafes[id]
		if f.Wishlist != nil && c.Wishlist != *f.Wishlist {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(c.Name), q) && !strings.Contains(strings.ToLower(c.Address), q) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *memCafeRepo) VisitedLocations(_ context.Context) ([]domain.GeoPoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.GeoPoint
	for _, id := range r.order {
		if c := r.cafes[id]; !c.Wishlist && c.Location != nil {
			out = append(out, *c.Location)
		}
	}
	return out, nil
}

// --- Mock PhotoRepository ---

type mockPhotoRepo struct {
	mu     sync.Mutex
	photos map[string]domain.Photo
	saveFn func(ctx context.Context, p *domain.Photo) error

	deletedCafes []string
}

func newMockPhotoRepo() *mockPhotoRepo {
	return &mockPhotoRepo{photos: map[string]domain.Photo{}}
}

func (m *mockPhotoRepo) Save(ctx context.Context, p *domain.Photo) error {
	if m.saveFn != nil {
		if err := m.saveFn(ctx, p); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos[p.ID] = *p
	return nil
}

func (m *mockPhotoRepo) GetByID(_ context.Context, id string) (*domain.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.photos[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
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
	m.deletedCafes = append(m.deletedCafes, cafeID)
	for id, p := range m.photos {
		if p.CafeID == cafeID {
			delete(m.photos, id)
		}
	}
	return nil
}

// --- Mock CacheService ---

type mockCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	sets    int
	deletes []string
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return v, nil
}

func (m *mockCache) Set(_ context.Context, key string, value []byte, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, key)
	delete(m.data, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.CafeEvent
	err    error
}

func (m *mockPublisher) PublishCafeEvent(_ context.Context, ev *domain.CafeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *ev)
	return m.err
}

// --- Mock PlaceSearcher ---

type mockSearcher struct {
	calls    int
	searchFn func(ctx context.Context, q string) ([]domain.PlacePrediction, error)
}

func (m *mockSearcher) SearchCafes(ctx context.Context, q string) ([]domain.PlacePrediction, error) {
	m.calls++
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return nil, nil
}

// --- Mock PhotoDispatcher ---

type mockDispatcher struct {
	uploads []ports.PhotoUpload
	err     error
}

func (m *mockDispatcher) DispatchPhoto(_ context.Context, up ports.PhotoUpload) (string, error) {
	m.uploads = append(m.uploads, up)
	if m.err != nil {
		return "", m.err
	}
	return "photo-job-1", nil
}
