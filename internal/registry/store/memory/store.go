// Package memory is the in-process registry store. A single RWMutex guards all
// three aggregates, so every method observes one consistent state.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"recordshare/internal/registry/models"
	id "recordshare/pkg/domain"
	"recordshare/pkg/platform/sentinel"
)

type edge struct {
	owner    id.Address
	consumer id.Address
}

// InMemoryStore keeps the access matrix as an edge set plus forward and
// reverse indices in grant order.
type InMemoryStore struct {
	mu         sync.RWMutex
	identities map[id.Address]models.Identity
	documents  map[id.Address][]models.DocumentRecord
	grants     map[edge]models.AccessGrant
	consumers  map[id.Address][]id.Address
	owners     map[id.Address][]id.Address
}

func New() *InMemoryStore {
	return &InMemoryStore{
		identities: make(map[id.Address]models.Identity),
		documents:  make(map[id.Address][]models.DocumentRecord),
		grants:     make(map[edge]models.AccessGrant),
		consumers:  make(map[id.Address][]id.Address),
		owners:     make(map[id.Address][]id.Address),
	}
}

func (s *InMemoryStore) FindIdentity(_ context.Context, address id.Address) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[address]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &identity, nil
}

func (s *InMemoryStore) CreateIdentity(_ context.Context, identity *models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.identities[identity.Address]; ok {
		return fmt.Errorf("identity %s: %w", identity.Address, sentinel.ErrAlreadyUsed)
	}
	s.identities[identity.Address] = *identity
	return nil
}

func (s *InMemoryStore) AppendDocument(_ context.Context, doc *models.DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger := s.documents[doc.Owner]
	var prev models.DocumentRecord
	if n := len(ledger); n > 0 {
		prev = ledger[n-1]
	}
	doc.Index = len(ledger)
	doc.CreatedAt = models.NextCreatedAt(prev.CreatedAt, doc.CreatedAt)
	s.documents[doc.Owner] = append(ledger, *doc)
	return nil
}

func (s *InMemoryStore) ListDocuments(_ context.Context, owner id.Address) ([]models.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.documents[owner]), nil
}

func (s *InMemoryStore) PutGrant(_ context.Context, grant models.AccessGrant) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := edge{owner: grant.Owner, consumer: grant.Consumer}
	if _, ok := s.grants[key]; ok {
		return false, nil
	}
	s.grants[key] = grant
	s.consumers[grant.Owner] = append(s.consumers[grant.Owner], grant.Consumer)
	s.owners[grant.Consumer] = append(s.owners[grant.Consumer], grant.Owner)
	return true, nil
}

func (s *InMemoryStore) DeleteGrant(_ context.Context, owner, consumer id.Address) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := edge{owner: owner, consumer: consumer}
	if _, ok := s.grants[key]; !ok {
		return false, nil
	}
	delete(s.grants, key)
	s.consumers[owner] = without(s.consumers[owner], consumer)
	s.owners[consumer] = without(s.owners[consumer], owner)
	return true, nil
}

func (s *InMemoryStore) ListConsumers(_ context.Context, owner id.Address) ([]id.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.consumers[owner]), nil
}

func (s *InMemoryStore) ListOwners(_ context.Context, consumer id.Address) ([]id.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.owners[consumer]), nil
}

func (s *InMemoryStore) DocumentsForConsumer(_ context.Context, owner, consumer id.Address) ([]models.DocumentRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.grants[edge{owner: owner, consumer: consumer}]; !ok {
		return nil, false, nil
	}
	return slices.Clone(s.documents[owner]), true, nil
}

// without removes target preserving order. Empty results become nil so
// deleted keys do not leave empty slices behind.
func without(list []id.Address, target id.Address) []id.Address {
	i := slices.Index(list, target)
	if i < 0 {
		return list
	}
	out := slices.Delete(slices.Clone(list), i, i+1)
	if len(out) == 0 {
		return nil
	}
	return out
}
