package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/mapsync"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/profile"
)

func newPinsCmd(env Env) *cobra.Command {
	var (
		active string
		zoom   float64
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "pins <slug>",
		Short: "Render a profile's pins as marker operations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := env.Open(cmd.Context())
			if err != nil {
				return fmt.Errorf("open backend: %w", err)
			}
			defer backend.Shutdown()

			page, err := profile.NewService(backend.Backend, env.Logger.Named("profile")).Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(page)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s), %d pins\n", page.Profile.FullName, page.Profile.Slug, len(page.Pins))
			syncer := mapsync.NewSyncer(&textRenderer{w: out}, &textCamera{w: out, zoom: zoom}, mapsync.Options{
				FollowActive: true,
				MinZoom:      env.Config.MinZoom,
			})
			syncer.Sync(page.Pins, active)
			return nil
		},
	}
	cmd.Flags().StringVar(&active, "active", "", "place id to select")
	cmd.Flags().Float64Var(&zoom, "zoom", 2, "starting camera zoom")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the profile page as JSON")
	return cmd
}

// textRenderer prints marker mutations, one per line.
type textRenderer struct {
	w io.Writer
}

func (r *textRenderer) AddMarker(pin domain.Pin, active bool, _ func()) mapsync.MarkerHandle {
	mark := " "
	if active {
		mark = "*"
	}
	fmt.Fprintf(r.w, "%s %-12s %9.4f %9.4f  %s", mark, pin.ID, pin.Lat, pin.Lng, pin.Title)
	if pin.Subtitle != "" {
		fmt.Fprintf(r.w, ", %s", pin.Subtitle)
	}
	fmt.Fprintln(r.w)
	return &textMarker{w: r.w, id: pin.ID}
}

type textMarker struct {
	w  io.Writer
	id string
}

func (m *textMarker) Move(lat, lng float64) {
	fmt.Fprintf(m.w, "~ %s moved to %.4f %.4f\n", m.id, lat, lng)
}

func (m *textMarker) SetActive(active bool) {
	fmt.Fprintf(m.w, "~ %s active=%t\n", m.id, active)
}

func (m *textMarker) Remove() {
	fmt.Fprintf(m.w, "- %s\n", m.id)
}

type textCamera struct {
	w    io.Writer
	zoom float64
}

func (c *textCamera) Zoom() float64 { return c.zoom }

func (c *textCamera) FlyTo(move mapsync.CameraMove) {
	c.zoom = move.Zoom
	fmt.Fprintf(c.w, "camera -> %.4f %.4f zoom %.1f\n", move.Lat, move.Lng, move.Zoom)
}
