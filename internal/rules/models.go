// Package rules holds the configurable checklist of required document types
// per platform. The core flows only read it; configuration happens out of
// band.
package rules

import (
	"time"

	"preuvio/pkg/domain"
)

// Item is one required-or-optional document type in a package.
type Item struct {
	DocumentType   string `json:"document_type"`
	Label          string `json:"label"`
	Required       bool   `json:"required"`
	ExpirationDays int    `json:"expiration_days"`
}

// Package is a named, versioned list of document requirements. A nil
// PlatformID marks the global template package used as fallback.
type Package struct {
	ID         domain.RulesPackageID `json:"id"`
	PlatformID *domain.PlatformID    `json:"platform_id,omitempty"`
	Name       string                `json:"name"`
	Version    int                   `json:"version"`
	Items      []Item                `json:"items"`
	CreatedAt  time.Time             `json:"created_at"`
}

// RequiredItem returns the item for a document type, if the package lists it.
func (p *Package) RequiredItem(documentType string) (Item, bool) {
	for _, item := range p.Items {
		if item.DocumentType == documentType {
			return item, true
		}
	}
	return Item{}, false
}
