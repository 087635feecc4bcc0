package enrich

import (
	"context"
	"log/slog"
)

// Lookups is the set of external calls the pipeline chains. Kept as an
// interface so the resolver layer and tests can substitute the real client.
type Lookups interface {
	ValidatePhone(ctx context.Context, telefono string) (Validation, error)
	GetCapital(ctx context.Context, pais string) (CountryInfo, error)
	GetLatLon(ctx context.Context, capital string) (Coordinates, error)
	GetLocalTime(ctx context.Context, lat, lon float64) (string, error)
}

// Enrichment is the complete bundle of derived contact fields. The four
// fields always come from one validation pass; partial bundles never leave
// this package.
type Enrichment struct {
	Pais        string
	ISO2        string
	Capital     string
	HoraCapital string
}

// Pipeline chains the external lookups in dependency order. FromPhone is the
// strict write-time path; LocalTime is the tolerant read-time path.
type Pipeline struct {
	lookups Lookups
	logger  *slog.Logger
}

func NewPipeline(lookups Lookups, logger *slog.Logger) *Pipeline {
	return &Pipeline{lookups: lookups, logger: logger}
}

// FromPhone derives the full enrichment bundle from a raw phone number:
// validate -> capital -> coordinates -> time, each step feeding the next.
// An invalid number fails with ErrInvalidPhone before any downstream call.
// Downstream failures propagate unwrapped so callers can distinguish a
// LookupError from a NotFoundError.
func (p *Pipeline) FromPhone(ctx context.Context, telefono string) (Enrichment, error) {
	validation, err := p.lookups.ValidatePhone(ctx, telefono)
	if err != nil {
		return Enrichment{}, err
	}
	if !validation.IsValid {
		return Enrichment{}, ErrInvalidPhone
	}

	country, err := p.lookups.GetCapital(ctx, validation.Pais)
	if err != nil {
		return Enrichment{}, err
	}

	coords, err := p.lookups.GetLatLon(ctx, country.Capital)
	if err != nil {
		return Enrichment{}, err
	}

	hora, err := p.lookups.GetLocalTime(ctx, coords.Lat, coords.Lon)
	if err != nil {
		return Enrichment{}, err
	}

	return Enrichment{
		Pais:        validation.Pais,
		ISO2:        country.ISO2,
		Capital:     country.Capital,
		HoraCapital: hora,
	}, nil
}

// LocalTime derives the current HH:MM at a known capital, running only the
// coordinate and time lookups. Any failure yields absent rather than an
// error: a stale external service must never make stored contacts unreadable.
func (p *Pipeline) LocalTime(ctx context.Context, capital string) (string, bool) {
	if capital == "" {
		return "", false
	}

	coords, err := p.lookups.GetLatLon(ctx, capital)
	if err != nil {
		p.logger.DebugContext(ctx, "local time unavailable", "capital", capital, "error", err)
		return "", false
	}

	hora, err := p.lookups.GetLocalTime(ctx, coords.Lat, coords.Lon)
	if err != nil {
		p.logger.DebugContext(ctx, "local time unavailable", "capital", capital, "error", err)
		return "", false
	}
	return hora, true
}
