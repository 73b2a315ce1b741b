// Package storetest holds the behavioural suite every registry store must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"recordshare/internal/registry/models"
	"recordshare/internal/registry/service"
	id "recordshare/pkg/domain"
	"recordshare/pkg/platform/sentinel"
)

// StoreSuite runs against whatever NewStore returns. NewStore is called once
// per test and must hand back an empty store.
type StoreSuite struct {
	suite.Suite
	NewStore func() service.Store

	store service.Store
	ctx   context.Context
}

func (s *StoreSuite) SetupTest() {
	s.store = s.NewStore()
	s.ctx = context.Background()
}

var (
	alice = id.MustParseAddress("0xa11ce")
	bob   = id.MustParseAddress("0xb0b")
	carol = id.MustParseAddress("0xca401")
	dave  = id.MustParseAddress("0xda4e")
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func (s *StoreSuite) TestIdentities() {
	s.Run("unknown address is not found", func() {
		_, err := s.store.FindIdentity(s.ctx, alice)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("created identity round trips", func() {
		s.Require().NoError(s.store.CreateIdentity(s.ctx, &models.Identity{Address: alice, Role: models.RoleOwner, RegisteredAt: t0}))

		found, err := s.store.FindIdentity(s.ctx, alice)
		s.Require().NoError(err)
		s.Equal(alice, found.Address)
		s.Equal(models.RoleOwner, found.Role)
		s.True(found.RegisteredAt.Equal(t0))
	})

	s.Run("second create for the same address is rejected", func() {
		err := s.store.CreateIdentity(s.ctx, &models.Identity{Address: alice, Role: models.RoleConsumer, RegisteredAt: t0})
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

		found, err := s.store.FindIdentity(s.ctx, alice)
		s.Require().NoError(err)
		s.Equal(models.RoleOwner, found.Role)
	})
}

func (s *StoreSuite) TestDocuments() {
	s.Run("empty ledger", func() {
		docs, err := s.store.ListDocuments(s.ctx, alice)
		s.Require().NoError(err)
		s.Empty(docs)
	})

	s.Run("indices are dense and timestamps strictly increase", func() {
		for i, p := range []string{"ipfsHashA", "ipfsHashB", "ipfsHashC"} {
			doc := &models.DocumentRecord{Owner: alice, ContentPointer: p, CreatedAt: t0, Active: true}
			s.Require().NoError(s.store.AppendDocument(s.ctx, doc))
			s.Equal(i, doc.Index)
		}

		docs, err := s.store.ListDocuments(s.ctx, alice)
		s.Require().NoError(err)
		s.Require().Len(docs, 3)
		for i, d := range docs {
			s.Equal(i, d.Index)
			s.Equal(alice, d.Owner)
			s.True(d.Active)
			if i > 0 {
				s.True(d.CreatedAt.After(docs[i-1].CreatedAt))
			}
		}
		s.Equal("ipfsHashB", docs[1].ContentPointer)
	})

	s.Run("ledgers are independent", func() {
		doc := &models.DocumentRecord{Owner: bob, ContentPointer: "ipfsHashZ", CreatedAt: t0, Active: true}
		s.Require().NoError(s.store.AppendDocument(s.ctx, doc))
		s.Equal(0, doc.Index)
	})
}

func (s *StoreSuite) TestGrants() {
	s.Run("put is idempotent", func() {
		created, err := s.store.PutGrant(s.ctx, models.AccessGrant{Owner: alice, Consumer: bob, GrantedAt: t0})
		s.Require().NoError(err)
		s.True(created)

		created, err = s.store.PutGrant(s.ctx, models.AccessGrant{Owner: alice, Consumer: bob, GrantedAt: t0})
		s.Require().NoError(err)
		s.False(created)

		s.Equal([]id.Address{bob}, s.consumers(alice))
		s.Equal([]id.Address{alice}, s.owners(bob))
	})

	s.Run("indices keep grant order", func() {
		_, err := s.store.PutGrant(s.ctx, models.AccessGrant{Owner: alice, Consumer: carol, GrantedAt: t0})
		s.Require().NoError(err)
		_, err = s.store.PutGrant(s.ctx, models.AccessGrant{Owner: dave, Consumer: bob, GrantedAt: t0})
		s.Require().NoError(err)

		s.Equal([]id.Address{bob, carol}, s.consumers(alice))
		s.Equal([]id.Address{alice, dave}, s.owners(bob))
	})

	s.Run("delete removes from both indices", func() {
		removed, err := s.store.DeleteGrant(s.ctx, alice, bob)
		s.Require().NoError(err)
		s.True(removed)

		removed, err = s.store.DeleteGrant(s.ctx, alice, bob)
		s.Require().NoError(err)
		s.False(removed)

		s.Equal([]id.Address{carol}, s.consumers(alice))
		s.Equal([]id.Address{dave}, s.owners(bob))
	})

	s.Run("re-grant goes to the end", func() {
		_, err := s.store.PutGrant(s.ctx, models.AccessGrant{Owner: alice, Consumer: bob, GrantedAt: t0})
		s.Require().NoError(err)
		s.Equal([]id.Address{carol, bob}, s.consumers(alice))
		s.Equal([]id.Address{dave, alice}, s.owners(bob))
	})
}

func (s *StoreSuite) TestDocumentsForConsumer() {
	s.Require().NoError(s.store.AppendDocument(s.ctx, &models.DocumentRecord{Owner: alice, ContentPointer: "ipfsHashA", CreatedAt: t0, Active: true}))

	docs, granted, err := s.store.DocumentsForConsumer(s.ctx, alice, bob)
	s.Require().NoError(err)
	s.False(granted)
	s.Empty(docs)

	_, err = s.store.PutGrant(s.ctx, models.AccessGrant{Owner: alice, Consumer: bob, GrantedAt: t0})
	s.Require().NoError(err)

	docs, granted, err = s.store.DocumentsForConsumer(s.ctx, alice, bob)
	s.Require().NoError(err)
	s.True(granted)
	s.Require().Len(docs, 1)
	s.Equal("ipfsHashA", docs[0].ContentPointer)
}

// TestConcurrentGrantsStaySymmetric hammers one owner from many goroutines and
// checks the two indices agree afterwards.
func (s *StoreSuite) TestConcurrentGrantsStaySymmetric() {
	const consumers = 20
	var wg sync.WaitGroup
	for i := range consumers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := id.MustParseAddress(fmt.Sprintf("0xc%02x", i))
			_, err := s.store.PutGrant(s.ctx, models.AccessGrant{Owner: alice, Consumer: c, GrantedAt: t0})
			s.NoError(err)
			if i%2 == 0 {
				_, err = s.store.DeleteGrant(s.ctx, alice, c)
				s.NoError(err)
			}
		}(i)
	}
	wg.Wait()

	granted := s.consumers(alice)
	s.Len(granted, consumers/2)
	for _, c := range granted {
		s.Equal([]id.Address{alice}, s.owners(c))
	}
}

func (s *StoreSuite) consumers(owner id.Address) []id.Address {
	out, err := s.store.ListConsumers(s.ctx, owner)
	s.Require().NoError(err)
	return out
}

func (s *StoreSuite) owners(consumer id.Address) []id.Address {
	out, err := s.store.ListOwners(s.ctx, consumer)
	s.Require().NoError(err)
	return out
}
