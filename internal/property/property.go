// ABOUTME: Property result records attached to assistant responses
// ABOUTME: Nullable fields format as "unknown"/"unspecified" rather than being dropped

package property

import (
	"fmt"
	"strings"
)

// Summary is one recommended property as sent by the backend.
// Every field except ID and ProjectName is nullable on the wire;
// pointers distinguish "not provided" from zero values.
type Summary struct {
	ID           string   `json:"id"`
	ProjectName  string   `json:"project_name"`
	City         *string  `json:"city"`
	Country      *string  `json:"country"`
	PriceUSD     *float64 `json:"price_usd"`
	Bedrooms     *int     `json:"bedrooms"`
	PropertyType *string  `json:"property_type"`
}

// Location returns the city (and country when present), or "unknown location".
func (s Summary) Location() string {
	switch {
	case s.City != nil && s.Country != nil:
		return fmt.Sprintf("%s, %s", *s.City, *s.Country)
	case s.City != nil:
		return *s.City
	case s.Country != nil:
		return *s.Country
	default:
		return "unknown location"
	}
}

// Price returns a formatted USD price, or "price unknown".
func (s Summary) Price() string {
	if s.PriceUSD == nil {
		return "price unknown"
	}
	return fmt.Sprintf("$%s", formatThousands(*s.PriceUSD))
}

// BedroomCount returns e.g. "3 BR", or "bedrooms unspecified".
func (s Summary) BedroomCount() string {
	if s.Bedrooms == nil {
		return "bedrooms unspecified"
	}
	return fmt.Sprintf("%d BR", *s.Bedrooms)
}

// Category returns the property type, or "unspecified type".
func (s Summary) Category() string {
	if s.PropertyType == nil || *s.PropertyType == "" {
		return "unspecified type"
	}
	return *s.PropertyType
}

// String renders a single-line card used by the TUI and transcripts.
func (s Summary) String() string {
	name := s.ProjectName
	if name == "" {
		name = "(unnamed project)"
	}
	parts := []string{name, s.Location(), s.Price(), s.BedroomCount(), s.Category()}
	return strings.Join(parts, " | ")
}

// formatThousands renders a float as an integer amount with comma separators.
// Prices come in whole dollars; fractional cents are not displayed.
func formatThousands(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := fmt.Sprintf("%.0f", v)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return b.String()
}
