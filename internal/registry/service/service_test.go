package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"recordshare/internal/registry/metrics"
	"recordshare/internal/registry/models"
	"recordshare/internal/registry/store/memory"
	id "recordshare/pkg/domain"
	dErrors "recordshare/pkg/domain-errors"
	audit "recordshare/pkg/platform/audit"
	auditmemory "recordshare/pkg/platform/audit/store/memory"
	"recordshare/pkg/principal"
	"recordshare/pkg/requestcontext"
)

var (
	p1 = principal.Verified(id.MustParseAddress("0xp1"), "tok-p1")
	p2 = principal.Verified(id.MustParseAddress("0xp2"), "tok-p2")
	d1 = principal.Verified(id.MustParseAddress("0xd1"), "tok-d1")
	d2 = principal.Verified(id.MustParseAddress("0xd2"), "tok-d2")
	x  = principal.Verified(id.MustParseAddress("0xx"), "tok-x")
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memory.InMemoryStore
	audits  *auditmemory.InMemoryStore
	cache   *fakeRoleCache
	metrics *metrics.Metrics
	svc     *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	s.store = memory.New()
	s.audits = auditmemory.NewInMemoryStore()
	s.cache = newFakeRoleCache()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.svc = New(s.store,
		WithAuditPublisher(audit.NewPublisher(s.audits)),
		WithRoleCache(s.cache),
		WithMetrics(s.metrics),
	)
}

func (s *ServiceSuite) register(p principal.Principal, role models.Role) {
	_, err := s.svc.Register(s.ctx, p, role)
	s.Require().NoError(err)
}

func (s *ServiceSuite) requireCode(err error, code dErrors.Code) {
	s.Require().Error(err)
	s.Truef(dErrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func (s *ServiceSuite) actions() []audit.AuditEvent {
	events, err := s.audits.ListAll(s.ctx)
	s.Require().NoError(err)
	out := make([]audit.AuditEvent, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

func (s *ServiceSuite) TestRegister() {
	s.Run("unregistered until registered, then fixed", func() {
		role, err := s.svc.GetRole(s.ctx, p1.Address())
		s.Require().NoError(err)
		s.Equal(models.RoleUnregistered, role)

		identity, err := s.svc.Register(s.ctx, p1, models.RoleOwner)
		s.Require().NoError(err)
		s.Equal(models.RoleOwner, identity.Role)
		s.False(identity.RegisteredAt.IsZero())

		_, err = s.svc.Register(s.ctx, p1, models.RoleConsumer)
		s.requireCode(err, dErrors.CodeAlreadyRegistered)

		_, err = s.svc.Register(s.ctx, p1, models.RoleOwner)
		s.requireCode(err, dErrors.CodeAlreadyRegistered)

		role, err = s.svc.GetRole(s.ctx, p1.Address())
		s.Require().NoError(err)
		s.Equal(models.RoleOwner, role)
	})

	s.Run("unregistered is not a registrable role", func() {
		_, err := s.svc.Register(s.ctx, d1, models.RoleUnregistered)
		s.requireCode(err, dErrors.CodeInvalidRole)

		_, err = s.svc.Register(s.ctx, d1, models.Role(3))
		s.requireCode(err, dErrors.CodeInvalidRole)
	})

	s.Run("zero principal is rejected", func() {
		_, err := s.svc.Register(s.ctx, principal.Principal{}, models.RoleOwner)
		s.requireCode(err, dErrors.CodeUnauthorized)
	})

	s.Equal([]audit.AuditEvent{audit.EventIdentityRegistered}, s.actions())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Registrations.WithLabelValues("owner")))
}

func (s *ServiceSuite) TestGetIdentity() {
	identity, err := s.svc.GetIdentity(s.ctx, d1.Address())
	s.Require().NoError(err)
	s.False(identity.Registered())
	s.True(identity.RegisteredAt.IsZero())

	s.register(d1, models.RoleConsumer)
	identity, err = s.svc.GetIdentity(s.ctx, d1.Address())
	s.Require().NoError(err)
	s.Equal(models.RoleConsumer, identity.Role)
	s.Equal(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC), identity.RegisteredAt)
}

func (s *ServiceSuite) TestConcurrentRegisterHasOneWinner() {
	const callers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			role := models.RoleOwner
			if i%2 == 1 {
				role = models.RoleConsumer
			}
			_, err := s.svc.Register(s.ctx, p2, role)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case dErrors.HasCode(err, dErrors.CodeAlreadyRegistered):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	s.Equal(1, successes)
	s.Equal(callers-1, conflicts)
}

func (s *ServiceSuite) TestAddDocument() {
	s.register(p1, models.RoleOwner)
	s.register(d1, models.RoleConsumer)

	s.Run("owner gets dense indices from zero", func() {
		for i, pointer := range []string{"ipfsHashA", "ipfsHashB", "ipfsHashC"} {
			doc, err := s.svc.AddDocument(s.ctx, p1, pointer)
			s.Require().NoError(err)
			s.Equal(i, doc.Index)
			s.True(doc.Active)
		}
		docs, err := s.svc.GetOwnDocuments(s.ctx, p1)
		s.Require().NoError(err)
		s.Require().Len(docs, 3)
		s.True(docs[1].CreatedAt.After(docs[0].CreatedAt), "timestamps increase even with a frozen clock")
	})

	s.Run("duplicate pointers are separate records", func() {
		doc, err := s.svc.AddDocument(s.ctx, p1, "ipfsHashA")
		s.Require().NoError(err)
		s.Equal(3, doc.Index)
	})

	s.Run("consumer is not an owner", func() {
		_, err := s.svc.AddDocument(s.ctx, d1, "ipfsHashA")
		s.requireCode(err, dErrors.CodeNotOwner)
	})

	s.Run("empty pointer", func() {
		_, err := s.svc.AddDocument(s.ctx, p1, "   ")
		s.requireCode(err, dErrors.CodeInvalidPointer)
	})

	s.Run("role is checked before the pointer", func() {
		_, err := s.svc.AddDocument(s.ctx, x, "")
		s.requireCode(err, dErrors.CodeNotOwner)
	})
}

func (s *ServiceSuite) TestConcurrentAddDocumentHasNoGaps() {
	s.register(p1, models.RoleOwner)

	const n = 50
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.svc.AddDocument(s.ctx, p1, fmt.Sprintf("ipfsHash%d", i))
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	docs, err := s.svc.ListDocuments(s.ctx, p1.Address())
	s.Require().NoError(err)
	s.Require().Len(docs, n)
	for i, d := range docs {
		s.Equal(i, d.Index)
	}
}

func (s *ServiceSuite) TestGrantAndRevoke() {
	s.register(p1, models.RoleOwner)
	s.register(p2, models.RoleOwner)
	s.register(d1, models.RoleConsumer)

	s.Run("grant twice lists the consumer once", func() {
		s.Require().NoError(s.svc.Grant(s.ctx, p1, d1.Address()))
		s.Require().NoError(s.svc.Grant(s.ctx, p1, d1.Address()))

		consumers, err := s.svc.ListConsumersOf(s.ctx, p1.Address())
		s.Require().NoError(err)
		s.Equal([]id.Address{d1.Address()}, consumers)

		owners, err := s.svc.ListOwnersGranting(s.ctx, d1.Address())
		s.Require().NoError(err)
		s.Equal([]id.Address{p1.Address()}, owners)
	})

	s.Run("grantee must be a registered consumer", func() {
		s.requireCode(s.svc.Grant(s.ctx, p1, p2.Address()), dErrors.CodeUnknownConsumer)
		s.requireCode(s.svc.Grant(s.ctx, p1, d2.Address()), dErrors.CodeUnknownConsumer)
		s.requireCode(s.svc.Grant(s.ctx, p1, p1.Address()), dErrors.CodeUnknownConsumer)
	})

	s.Run("revoke of a missing edge is a no-op", func() {
		s.Require().NoError(s.svc.Revoke(s.ctx, p2, d1.Address()))
		s.Require().NoError(s.svc.Revoke(s.ctx, p1, d2.Address()))

		consumers, err := s.svc.ListConsumersOf(s.ctx, p1.Address())
		s.Require().NoError(err)
		s.Equal([]id.Address{d1.Address()}, consumers)
	})

	s.Run("revoke removes both directions", func() {
		s.Require().NoError(s.svc.Revoke(s.ctx, p1, d1.Address()))

		consumers, err := s.svc.ListConsumersOf(s.ctx, p1.Address())
		s.Require().NoError(err)
		s.Empty(consumers)
		owners, err := s.svc.ListOwnersGranting(s.ctx, d1.Address())
		s.Require().NoError(err)
		s.Empty(owners)
	})

	s.Run("non-owners cannot grant or revoke", func() {
		s.requireCode(s.svc.Grant(s.ctx, d1, d1.Address()), dErrors.CodeNotOwner)
		s.requireCode(s.svc.Revoke(s.ctx, d1, d1.Address()), dErrors.CodeNotOwner)
		s.requireCode(s.svc.Grant(s.ctx, x, d1.Address()), dErrors.CodeNotOwner)
	})

	s.Equal([]audit.AuditEvent{
		audit.EventIdentityRegistered,
		audit.EventIdentityRegistered,
		audit.EventIdentityRegistered,
		audit.EventAccessGranted,
		audit.EventAccessRevoked,
	}, s.actions(), "only effective changes are audited")
	s.Equal(1.0, testutil.ToFloat64(s.metrics.GrantChanges.WithLabelValues("grant", "noop")))
}

func (s *ServiceSuite) TestSymmetryUnderInterleavings() {
	owners := []principal.Principal{p1, p2}
	consumers := []principal.Principal{d1, d2}
	for _, o := range owners {
		s.register(o, models.RoleOwner)
	}
	for _, c := range consumers {
		s.register(c, models.RoleConsumer)
	}

	var wg sync.WaitGroup
	for round := range 40 {
		for _, o := range owners {
			for _, c := range consumers {
				wg.Add(1)
				go func(o principal.Principal, c id.Address, grant bool) {
					defer wg.Done()
					if grant {
						s.NoError(s.svc.Grant(s.ctx, o, c))
					} else {
						s.NoError(s.svc.Revoke(s.ctx, o, c))
					}
				}(o, c.Address(), round%3 != 0)
			}
		}
	}
	wg.Wait()

	for _, o := range owners {
		for _, c := range consumers {
			forward, err := s.svc.ListConsumersOf(s.ctx, o.Address())
			s.Require().NoError(err)
			reverse, err := s.svc.ListOwnersGranting(s.ctx, c.Address())
			s.Require().NoError(err)
			s.Equal(contains(forward, c.Address()), contains(reverse, o.Address()))
		}
	}
}

// TestEndToEndGrantThenRevoke walks an owner and a consumer through the full
// share-then-withdraw lifecycle.
func (s *ServiceSuite) TestEndToEndGrantThenRevoke() {
	s.register(p1, models.RoleOwner)
	for i, pointer := range []string{"ipfsHashA", "ipfsHashB"} {
		doc, err := s.svc.AddDocument(s.ctx, p1, pointer)
		s.Require().NoError(err)
		s.Equal(i, doc.Index)
	}
	s.register(d1, models.RoleConsumer)

	_, err := s.svc.GetDocumentsAsConsumer(s.ctx, d1, p1.Address())
	s.requireCode(err, dErrors.CodeAccessDenied)

	s.Require().NoError(s.svc.Grant(s.ctx, p1, d1.Address()))

	docs, err := s.svc.GetDocumentsAsConsumer(s.ctx, d1, p1.Address())
	s.Require().NoError(err)
	s.Require().Len(docs, 2)
	s.Equal("ipfsHashA", docs[0].ContentPointer)
	s.Equal("ipfsHashB", docs[1].ContentPointer)

	mine, err := s.svc.GetMyOwners(s.ctx, d1)
	s.Require().NoError(err)
	s.Equal([]id.Address{p1.Address()}, mine)

	theirs, err := s.svc.GetMyConsumers(s.ctx, p1)
	s.Require().NoError(err)
	s.Equal([]id.Address{d1.Address()}, theirs)

	s.Require().NoError(s.svc.Revoke(s.ctx, p1, d1.Address()))

	_, err = s.svc.GetDocumentsAsConsumer(s.ctx, d1, p1.Address())
	s.requireCode(err, dErrors.CodeAccessDenied)
	s.Equal(2.0, testutil.ToFloat64(s.metrics.AccessDenied))

	denials, err := s.audits.ListByActor(s.ctx, d1.Address().String())
	s.Require().NoError(err)
	var denied int
	for _, e := range denials {
		if e.Action == audit.EventAccessDenied {
			denied++
			s.Equal(audit.CategorySecurity, e.Category)
			s.Equal(p1.Address().String(), e.Subject)
		}
	}
	s.Equal(2, denied)
}

// TestUnregisteredCallerIsNotOwner checks an address with no role cannot
// touch ledgers or grants.
func (s *ServiceSuite) TestUnregisteredCallerIsNotOwner() {
	s.register(d1, models.RoleConsumer)

	_, err := s.svc.AddDocument(s.ctx, x, "ipfsHashA")
	s.requireCode(err, dErrors.CodeNotOwner)
	s.requireCode(s.svc.Grant(s.ctx, x, d1.Address()), dErrors.CodeNotOwner)
}

func (s *ServiceSuite) TestListingsForStrangersAreEmpty() {
	docs, err := s.svc.ListDocuments(s.ctx, x.Address())
	s.Require().NoError(err)
	s.Empty(docs)

	consumers, err := s.svc.ListConsumersOf(s.ctx, x.Address())
	s.Require().NoError(err)
	s.Empty(consumers)
}

func (s *ServiceSuite) TestRoleCache() {
	s.Run("unregistered lookups are not cached", func() {
		_, err := s.svc.GetRole(s.ctx, d2.Address())
		s.Require().NoError(err)
		s.NotContains(s.cache.snapshot(), d2.Address())
	})

	s.Run("registration populates the cache", func() {
		s.register(d2, models.RoleConsumer)
		s.Equal(models.RoleConsumer, s.cache.snapshot()[d2.Address()])
	})

	s.Run("cache failures fall back to the store", func() {
		s.cache.fail = true
		defer func() { s.cache.fail = false }()

		role, err := s.svc.GetRole(s.ctx, d2.Address())
		s.Require().NoError(err)
		s.Equal(models.RoleConsumer, role)
	})
}

func (s *ServiceSuite) TestSharedRoleLookupSurvivesCallerCancellation() {
	cache := &blockingRoleCache{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		role:    models.RoleOwner,
	}
	svc := New(memory.New(), WithRoleCache(cache))

	first, cancelFirst := context.WithCancel(s.ctx)
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.GetRole(first, p1.Address())
		firstErr <- err
	}()
	<-cache.entered

	type result struct {
		role models.Role
		err  error
	}
	second := make(chan result, 1)
	go func() {
		role, err := svc.GetRole(s.ctx, p1.Address())
		second <- result{role, err}
	}()

	cancelFirst()
	s.requireCode(<-firstErr, dErrors.CodeTimeout)

	close(cache.release)
	got := <-second
	s.Require().NoError(got.err)
	s.Equal(models.RoleOwner, got.role)
}

func (s *ServiceSuite) TestAuditFailureFailsMutation() {
	m := metrics.New(prometheus.NewRegistry())
	failing := New(memory.New(), WithAuditPublisher(failingPublisher{}), WithMetrics(m))

	_, err := failing.Register(s.ctx, p1, models.RoleOwner)
	s.requireCode(err, dErrors.CodeInternal)
	s.Equal(0.0, testutil.ToFloat64(m.Registrations.WithLabelValues("owner")))
}

func (s *ServiceSuite) TestCancelledContextTimesOut() {
	s.register(p1, models.RoleOwner)
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.svc.AddDocument(ctx, p1, "ipfsHashA")
	s.requireCode(err, dErrors.CodeTimeout)
}

func contains(list []id.Address, a id.Address) bool {
	for _, v := range list {
		if v == a {
			return true
		}
	}
	return false
}

type fakeRoleCache struct {
	mu    sync.Mutex
	roles map[id.Address]models.Role
	fail  bool
}

func newFakeRoleCache() *fakeRoleCache {
	return &fakeRoleCache{roles: make(map[id.Address]models.Role)}
}

func (c *fakeRoleCache) Get(_ context.Context, address id.Address) (models.Role, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return models.RoleUnregistered, false, errors.New("cache down")
	}
	role, ok := c.roles[address]
	return role, ok, nil
}

func (c *fakeRoleCache) Set(_ context.Context, address id.Address, role models.Role) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if role == models.RoleUnregistered {
		return errors.New("unregistered must not be cached")
	}
	c.roles[address] = role
	return nil
}

func (c *fakeRoleCache) snapshot() map[id.Address]models.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[id.Address]models.Role, len(c.roles))
	for k, v := range c.roles {
		out[k] = v
	}
	return out
}

// blockingRoleCache holds every Get until release is closed.
type blockingRoleCache struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	role    models.Role
}

func (c *blockingRoleCache) Get(ctx context.Context, _ id.Address) (models.Role, bool, error) {
	c.once.Do(func() { close(c.entered) })
	select {
	case <-c.release:
		return c.role, true, nil
	case <-ctx.Done():
		return models.RoleUnregistered, false, ctx.Err()
	}
}

func (c *blockingRoleCache) Set(context.Context, id.Address, models.Role) error {
	return nil
}

type failingPublisher struct{}

func (failingPublisher) Emit(context.Context, audit.Event) error {
	return errors.New("outbox unavailable")
}
