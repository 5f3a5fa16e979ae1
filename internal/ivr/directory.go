package ivr

import (
	"context"
	"errors"
	"fmt"

	"github.com/soyeahso/switchboard/internal/config"
	"github.com/soyeahso/switchboard/internal/domain"
	"github.com/soyeahso/switchboard/internal/store"
)

// BusinessReader is the read side of the store the directory needs.
type BusinessReader interface {
	Business(ctx context.Context, id string) (*domain.Business, error)
}

// Directory resolves a business id to its routing targets and persona.
// Businesses saved in the store win; anything else falls back to the
// business configured under telephony.
type Directory struct {
	store    BusinessReader
	fallback domain.Business
}

// NewDirectory creates a directory over st with the configured default.
func NewDirectory(st BusinessReader, tel config.TelephonyConfig) *Directory {
	return &Directory{
		store: st,
		fallback: domain.Business{
			ID:            tel.BusinessID,
			Name:          tel.BusinessName,
			SalesNumber:   tel.SalesNumber,
			SupportNumber: tel.SupportNumber,
			HumanNumber:   tel.HumanNumber,
			Profile:       domain.DefaultProfile(),
		},
	}
}

// DefaultID returns the id of the configured business.
func (d *Directory) DefaultID() string { return d.fallback.ID }

// Lookup returns the business for id. An empty id means the configured
// business; ids the store does not know resolve to the configured default.
func (d *Directory) Lookup(ctx context.Context, id string) (domain.Business, error) {
	if id == "" {
		id = d.fallback.ID
	}
	if id == "" || d.store == nil {
		return d.fallback, nil
	}
	b, err := d.store.Business(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return d.fallback, nil
	}
	if err != nil {
		return domain.Business{}, fmt.Errorf("loading business %s: %w", id, err)
	}
	out := *b
	out.Profile = out.Profile.WithDefaults()
	fill(&out.Name, d.fallback.Name)
	fill(&out.SalesNumber, d.fallback.SalesNumber)
	fill(&out.SupportNumber, d.fallback.SupportNumber)
	fill(&out.HumanNumber, d.fallback.HumanNumber)
	return out, nil
}

func fill(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}
