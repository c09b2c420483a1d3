// Package mapsync keeps a set of rendered map markers in step with a list of pins.
//
// Reconcile is a pure diff over ids; Syncer applies that diff to a Renderer and
// moves the Camera when the active pin changes.
package mapsync

import "github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"

// Marker is the renderer-independent state of one rendered pin.
type Marker struct {
	ID     string  `json:"id"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Active bool    `json:"active"`
}

// OpKind names a marker mutation.
type OpKind string

const (
	OpCreate  OpKind = "create"
	OpUpdate  OpKind = "update"
	OpDestroy OpKind = "destroy"
)

// Op is one marker mutation. Pin is set for create and update; destroy ops carry the zero Pin.
type Op struct {
	Kind   OpKind     `json:"kind"`
	ID     string     `json:"id"`
	Pin    domain.Pin `json:"pin"`
	Active bool       `json:"active"`
}

// Reconcile diffs the current markers against the incoming pins. All destroys come
// first, then creates and updates in pin order. Markers whose position and active
// flag are unchanged get no op. When pins repeats an id, the first occurrence wins.
func Reconcile(current []Marker, pins []domain.Pin, activeID string) []Op {
	incoming := make(map[string]struct{}, len(pins))
	for _, p := range pins {
		incoming[p.ID] = struct{}{}
	}

	existing := make(map[string]Marker, len(current))
	var ops []Op
	for _, m := range current {
		if _, dup := existing[m.ID]; dup {
			continue
		}
		existing[m.ID] = m
		if _, keep := incoming[m.ID]; !keep {
			ops = append(ops, Op{Kind: OpDestroy, ID: m.ID})
		}
	}

	seen := make(map[string]struct{}, len(pins))
	for _, p := range pins {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}

		active := activeID != "" && p.ID == activeID
		m, ok := existing[p.ID]
		switch {
		case !ok:
			ops = append(ops, Op{Kind: OpCreate, ID: p.ID, Pin: p, Active: active})
		case m.Lat != p.Lat || m.Lng != p.Lng || m.Active != active:
			ops = append(ops, Op{Kind: OpUpdate, ID: p.ID, Pin: p, Active: active})
		}
	}
	return ops
}

// Apply returns the marker set that results from running ops against current.
func Apply(current []Marker, ops []Op) []Marker {
	byID := make(map[string]int, len(current))
	out := make([]Marker, 0, len(current))
	for _, m := range current {
		if _, dup := byID[m.ID]; dup {
			continue
		}
		byID[m.ID] = len(out)
		out = append(out, m)
	}

	for _, op := range ops {
		switch op.Kind {
		case OpDestroy:
			idx, ok := byID[op.ID]
			if !ok {
				continue
			}
			out = append(out[:idx], out[idx+1:]...)
			delete(byID, op.ID)
			for id, i := range byID {
				if i > idx {
					byID[id] = i - 1
				}
			}
		case OpCreate:
			byID[op.ID] = len(out)
			out = append(out, Marker{ID: op.ID, Lat: op.Pin.Lat, Lng: op.Pin.Lng, Active: op.Active})
		case OpUpdate:
			if idx, ok := byID[op.ID]; ok {
				out[idx] = Marker{ID: op.ID, Lat: op.Pin.Lat, Lng: op.Pin.Lng, Active: op.Active}
			}
		}
	}
	return out
}
