package fog

import (
	"sync"

	"github.com/samirrijal/cafelog/internal/core/domain"
)

// Controller is an in-memory Map for hosts that have no map library of
// their own: the viewport is whatever the caller last set.
type Controller struct {
	mu      sync.Mutex
	center  domain.GeoPoint
	zoom    float64
	width   int
	height  int
	surface Surface

	nextID int
	subs   []subscription
}

type subscription struct {
	id int
	fn func()
}

// NewController creates a Controller mounting layers on surface.
func NewController(surface Surface) *Controller {
	return &Controller{surface: surface}
}

// SetViewport moves and resizes the map, then notifies subscribers
// synchronously in subscription order.
func (c *Controller) SetViewport(center domain.GeoPoint, zoom float64, width, height int) error {
	if _, err := NewWebMercatorViewport(center, zoom, width, height); err != nil {
		return err
	}
	c.mu.Lock()
	c.center, c.zoom, c.width, c.height = center, zoom, width, height
	subs := make([]subscription, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, s := range subs {
		s.fn()
	}
	return nil
}

// Viewport implements Map.
func (c *Controller) Viewport() (ViewportState, error) {
	c.mu.Lock()
	center, zoom, w, h := c.center, c.zoom, c.width, c.height
	c.mu.Unlock()
	return NewWebMercatorViewport(center, zoom, w, h)
}

// OnViewportChange implements Map.
func (c *Controller) OnViewportChange(fn func()) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscription{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Subscribers returns the number of registered change handlers.
func (c *Controller) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Surface implements Map.
func (c *Controller) Surface() Surface { return c.surface }
