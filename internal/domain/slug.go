package domain

import "strings"

const (
	// MinSlugLength is the shortest normalized slug a profile may claim.
	MinSlugLength = 3
	// MaxSlugLength caps the normalized slug.
	MaxSlugLength = 60
)

// NormalizeSlug lowercases s, collapses every run of characters outside [a-z0-9]
// into a single hyphen, trims hyphens from both ends and truncates to MaxSlugLength.
func NormalizeSlug(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	out := b.String()
	if len(out) > MaxSlugLength {
		out = strings.TrimRight(out[:MaxSlugLength], "-")
	}
	return out
}

// PlaceKey builds the case-folded composite key places are deduplicated on.
func PlaceKey(city, region, country string) string {
	parts := []string{city, region, country}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, "|")
}

// PinFromPlace projects a stored place into a map pin.
func PinFromPlace(place Place, label string) Pin {
	title := strings.TrimSpace(label)
	if title == "" {
		title = place.City
	}

	var sub []string
	for _, p := range []string{place.Region, place.Country} {
		if p = strings.TrimSpace(p); p != "" {
			sub = append(sub, p)
		}
	}

	return Pin{
		ID:       place.ID,
		Title:    title,
		Subtitle: strings.Join(sub, ", "),
		Lat:      place.Lat,
		Lng:      place.Lng,
	}
}
