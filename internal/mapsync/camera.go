package mapsync

import "github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"

// DefaultMinZoom is the zoom the camera is raised to when following a selection.
const DefaultMinZoom = 10

// CameraMove is a smooth fly-to target.
type CameraMove struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Zoom float64 `json:"zoom"`
}

// PlanCamera decides whether the camera should follow a selection change. It moves
// only when the active id changed to a pin present in pins; the zoom is raised to
// minZoom but never lowered.
func PlanCamera(prevActive, active string, pins []domain.Pin, currentZoom, minZoom float64) (CameraMove, bool) {
	if active == "" || active == prevActive {
		return CameraMove{}, false
	}
	for _, p := range pins {
		if p.ID != active {
			continue
		}
		zoom := currentZoom
		if zoom < minZoom {
			zoom = minZoom
		}
		return CameraMove{Lat: p.Lat, Lng: p.Lng, Zoom: zoom}, true
	}
	return CameraMove{}, false
}
