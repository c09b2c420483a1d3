package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSlug(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "spaces and punctuation", in: "My Cool Trip!!", want: "my-cool-trip"},
		{name: "only punctuation", in: "!!", want: ""},
		{name: "trailing hyphen trimmed", in: "a-", want: "a"},
		{name: "leading junk", in: "--__Hello", want: "hello"},
		{name: "runs collapse", in: "a   b---c", want: "a-b-c"},
		{name: "digits kept", in: "Trip 2024", want: "trip-2024"},
		{name: "non ascii becomes separator", in: "São Paulo", want: "s-o-paulo"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSlug(tt.in))
		})
	}
}

func TestNormalizeSlugTruncates(t *testing.T) {
	long := strings.Repeat("ab ", 40)
	got := NormalizeSlug(long)

	assert.LessOrEqual(t, len(got), MaxSlugLength)
	assert.False(t, strings.HasSuffix(got, "-"))
	assert.False(t, strings.HasPrefix(got, "-"))
}

func TestNormalizeSlugIsIdempotent(t *testing.T) {
	inputs := []string{
		"My Cool Trip!!", "!!", "a-", "  x  y  ", strings.Repeat("z-", 50), "ÄÖÜ travel", "a" + strings.Repeat("-", 70) + "b",
		strings.Repeat("q", 59) + " r",
	}
	for _, in := range inputs {
		once := NormalizeSlug(in)
		assert.Equal(t, once, NormalizeSlug(once), "input %q", in)
	}
}

func TestPlaceKeyCaseFolds(t *testing.T) {
	assert.Equal(t, "austin|tx|us", PlaceKey(" Austin ", "TX", "US"))
	assert.Equal(t, PlaceKey("austin", "tx", "us"), PlaceInput{City: "AUSTIN", Region: "Tx", Country: "us"}.Key())
	assert.Equal(t, "lisbon||", PlaceKey("Lisbon", "", ""))
}

func TestPinFromPlace(t *testing.T) {
	place := Place{ID: "p1", City: "Austin", Region: "TX", Country: "US", Lat: 30.2, Lng: -97.7}

	pin := PinFromPlace(place, "")
	assert.Equal(t, Pin{ID: "p1", Title: "Austin", Subtitle: "TX, US", Lat: 30.2, Lng: -97.7}, pin)

	pin = PinFromPlace(Place{ID: "p2", City: "Oslo"}, "Home")
	assert.Equal(t, "Home", pin.Title)
	assert.Equal(t, "", pin.Subtitle)
}

func TestIsSlugConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "wrapped conflict", err: fmt.Errorf("upsert profile: %w", ErrConflict), want: true},
		{name: "duplicate key message", err: errors.New(`duplicate key value violates unique constraint "profiles_pkey"`), want: true},
		{name: "mentions slug", err: errors.New("profiles.slug must be unique"), want: true},
		{name: "sqlstate", err: errors.New("ERROR (SQLSTATE 23505)"), want: true},
		{name: "unrelated", err: errors.New("connection refused"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSlugConflict(tt.err))
		})
	}
}

func TestValidationErrorUnwraps(t *testing.T) {
	err := Invalid("city", "is required")

	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "city: is required", err.Error())

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "city", ve.Field)
}
