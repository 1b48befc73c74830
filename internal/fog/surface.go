package fog

import (
	"fmt"
	"sort"
	"sync"
)

// MemorySurface is a Surface that keeps its layers in memory. It backs the
// CLI renderer and tests.
type MemorySurface struct {
	mu       sync.Mutex
	layers   []*Layer
	presents int

	// OnPresent, if set, is called after every Present.
	OnPresent func(l *Layer)
}

// AttachLayer implements Surface.
func (s *MemorySurface) AttachLayer(l *Layer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.layers {
		if existing == l {
			return fmt.Errorf("layer %q already attached", l.Name)
		}
	}
	s.layers = append(s.layers, l)
	sort.SliceStable(s.layers, func(i, j int) bool { return s.layers[i].ZIndex < s.layers[j].ZIndex })
	return nil
}

// DetachLayer implements Surface.
func (s *MemorySurface) DetachLayer(l *Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.layers {
		if existing == l {
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			return
		}
	}
}

// Present implements Surface.
func (s *MemorySurface) Present(l *Layer) {
	s.mu.Lock()
	s.presents++
	fn := s.OnPresent
	s.mu.Unlock()
	if fn != nil {
		fn(l)
	}
}

// Layers returns the mounted layers, bottom first.
func (s *MemorySurface) Layers() []*Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Layer, len(s.layers))
	copy(out, s.layers)
	return out
}

// Presents returns how many frames were presented.
func (s *MemorySurface) Presents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presents
}
