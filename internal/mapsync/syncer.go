package mapsync

import "github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"

// MarkerHandle is a marker owned by the rendering engine.
type MarkerHandle interface {
	Move(lat, lng float64)
	SetActive(active bool)
	Remove()
}

// Renderer creates markers. onClick is wired to the marker's click event.
type Renderer interface {
	AddMarker(pin domain.Pin, active bool, onClick func()) MarkerHandle
}

// Camera is the map viewport.
type Camera interface {
	Zoom() float64
	FlyTo(move CameraMove)
}

// Options tune a Syncer.
type Options struct {
	// FollowActive moves the camera to the active pin whenever it changes.
	FollowActive bool
	MinZoom      float64
	// OnSelect receives the id of a clicked marker. The Syncer never changes the
	// active id itself; the caller passes the new id to the next Sync.
	OnSelect func(id string)
}

type entry struct {
	marker Marker
	handle MarkerHandle
}

// Syncer owns the rendered markers for one map. It is not safe for concurrent use;
// drive it from the goroutine that owns the map.
type Syncer struct {
	renderer Renderer
	camera   Camera
	opts     Options

	markers  map[string]*entry
	order    []string
	followed string
}

// NewSyncer returns a Syncer with no markers. camera may be nil when FollowActive is off.
func NewSyncer(r Renderer, camera Camera, opts Options) *Syncer {
	if opts.MinZoom <= 0 {
		opts.MinZoom = DefaultMinZoom
	}
	return &Syncer{
		renderer: r,
		camera:   camera,
		opts:     opts,
		markers:  make(map[string]*entry),
	}
}

// Markers returns the current marker state in creation order.
func (s *Syncer) Markers() []Marker {
	out := make([]Marker, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.markers[id].marker)
	}
	return out
}

// Sync reconciles the rendered markers with pins and follows activeID with the camera.
// It returns the ops that were applied.
func (s *Syncer) Sync(pins []domain.Pin, activeID string) []Op {
	ops := Reconcile(s.Markers(), pins, activeID)
	for _, op := range ops {
		s.apply(op)
	}

	if activeID == "" {
		s.followed = ""
	}
	if s.opts.FollowActive && s.camera != nil {
		if move, ok := PlanCamera(s.followed, activeID, pins, s.camera.Zoom(), s.opts.MinZoom); ok {
			s.camera.FlyTo(move)
			s.followed = activeID
		}
	}
	return ops
}

// Clear removes every marker.
func (s *Syncer) Clear() {
	s.Sync(nil, "")
}

func (s *Syncer) apply(op Op) {
	switch op.Kind {
	case OpDestroy:
		e, ok := s.markers[op.ID]
		if !ok {
			return
		}
		e.handle.Remove()
		delete(s.markers, op.ID)
		for i, id := range s.order {
			if id == op.ID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}

	case OpCreate:
		id := op.ID
		h := s.renderer.AddMarker(op.Pin, op.Active, func() {
			if s.opts.OnSelect != nil {
				s.opts.OnSelect(id)
			}
		})
		s.markers[id] = &entry{
			marker: Marker{ID: id, Lat: op.Pin.Lat, Lng: op.Pin.Lng, Active: op.Active},
			handle: h,
		}
		s.order = append(s.order, id)

	case OpUpdate:
		e, ok := s.markers[op.ID]
		if !ok {
			return
		}
		if e.marker.Lat != op.Pin.Lat || e.marker.Lng != op.Pin.Lng {
			e.handle.Move(op.Pin.Lat, op.Pin.Lng)
		}
		if e.marker.Active != op.Active {
			e.handle.SetActive(op.Active)
		}
		e.marker = Marker{ID: op.ID, Lat: op.Pin.Lat, Lng: op.Pin.Lng, Active: op.Active}
	}
}
