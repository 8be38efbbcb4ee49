package model

import (
	"lodge/shared/timezone"
	"time"
)

type Metadata struct {
	CreatedAt  time.Time `db:"created_at"`
	ModifiedAt time.Time `db:"modified_at"`
	CreatedBy  string    `db:"created_by"`
	ModifiedBy string    `db:"modified_by"`
}

// NewMetadata stamps a freshly created record.
func NewMetadata(actor string) Metadata {
	now := timezone.Now()

	return Metadata{
		CreatedAt:  now,
		ModifiedAt: now,
		CreatedBy:  actor,
		ModifiedBy: actor,
	}
}

func (m *Metadata) Touch(actor string) {
	m.ModifiedAt = timezone.Now()
	m.ModifiedBy = actor
}
