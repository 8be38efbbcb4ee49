package dto

import (
	"lodge/shared/constant"
	"lodge/shared/model"
	"lodge/shared/timezone"
)

// Metadata is the audit block shared by every response, in app time.
type Metadata struct {
	CreatedAt  string `json:"createdAt"`
	ModifiedAt string `json:"updatedAt"`
	CreatedBy  string `json:"createdBy,omitempty"`
	ModifiedBy string `json:"updatedBy,omitempty"`
}

func (m *Metadata) FromModel(source model.Metadata) {
	*m = Metadata{
		CreatedAt:  timezone.Format(source.CreatedAt, constant.DateFormat),
		ModifiedAt: timezone.Format(source.ModifiedAt, constant.DateFormat),
		CreatedBy:  source.CreatedBy,
		ModifiedBy: source.ModifiedBy,
	}
}
