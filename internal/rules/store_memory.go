package rules

import (
	"context"
	"sync"
	"time"

	"preuvio/pkg/domain"
	"preuvio/pkg/platform/sentinel"
)

// InMemoryStore keeps rules packages in a map for development and unit tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	packages map[domain.RulesPackageID]*Package
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{packages: make(map[domain.RulesPackageID]*Package)}
}

func (s *InMemoryStore) FindByPlatform(ctx context.Context, platformID domain.PlatformID) (*Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *Package
	for _, pkg := range s.packages {
		if pkg.PlatformID != nil && *pkg.PlatformID == platformID {
			if best == nil || pkg.Version > best.Version {
				best = pkg
			}
		}
	}
	if best == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (s *InMemoryStore) GlobalTemplate(ctx context.Context) (*Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *Package
	for _, pkg := range s.packages {
		if pkg.PlatformID == nil {
			if best == nil || pkg.Version > best.Version {
				best = pkg
			}
		}
	}
	if best == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (s *InMemoryStore) Save(ctx context.Context, pkg *Package) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *pkg
	s.packages[pkg.ID] = &cp
	return nil
}

// SeedGlobalTemplate installs the default French B2B checklist used when a
// platform has not configured its own package.
func SeedGlobalTemplate(store Store) (*Package, error) {
	pkg := &Package{
		ID:      domain.NewRulesPackageID(),
		Name:    "global-default",
		Version: 1,
		Items: []Item{
			{DocumentType: "kbis", Label: "Extrait Kbis", Required: true, ExpirationDays: 90},
			{DocumentType: "id_card", Label: "Pièce d'identité", Required: true, ExpirationDays: 3650},
			{DocumentType: "insurance_certificate", Label: "Attestation d'assurance RC Pro", Required: true, ExpirationDays: 365},
			{DocumentType: "urssaf_attestation", Label: "Attestation de vigilance URSSAF", Required: true, ExpirationDays: 180},
			{DocumentType: "iban", Label: "Relevé d'identité bancaire", Required: false, ExpirationDays: 0},
		},
		CreatedAt: time.Now(),
	}
	if err := store.Save(context.Background(), pkg); err != nil {
		return nil, err
	}
	return pkg, nil
}
