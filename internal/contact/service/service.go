// Package service implements contact identity resolution: locating contacts
// that share an identifier with an observation, expanding them to full
// clusters, deciding whether a new record or a cluster merge is needed, and
// applying all mutations of one request as a single transaction.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"contactlink/internal/contact/models"
	"contactlink/internal/platform/metrics"
	dErrors "contactlink/pkg/domain-errors"
	"contactlink/pkg/platform/audit"
	"contactlink/pkg/platform/sentinel"
	"contactlink/pkg/requestcontext"
)

// Store is the persistence capability the resolution core requires. Both the
// in-memory and the PostgreSQL stores implement it; the core never talks to a
// database product directly.
type Store interface {
	FindByEmailOrPhone(ctx context.Context, email, phoneNumber *string) ([]*models.Contact, error)
	FindByPrimaryIDs(ctx context.Context, primaryIDs []int64) ([]*models.Contact, error)
	Create(ctx context.Context, contact *models.Contact) error
	DemoteToSecondary(ctx context.Context, contactID, newPrimaryID int64, now time.Time) error
	RelinkSecondaries(ctx context.Context, oldPrimaryID, newPrimaryID int64, now time.Time) error
	Ping(ctx context.Context) error
}

// Service orchestrates identify requests.
type Service struct {
	store   Store
	tx      StoreTx
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   audit.Store
	tracer  trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAuditStore enables the audit trail. The store must be transaction
// aware: inside RunInTx it joins the open transaction via the context.
func WithAuditStore(store audit.Store) Option {
	return func(s *Service) { s.audit = store }
}

// WithStoreTx overrides the transaction boundary. The default serializes
// writes with an in-process lock, which is only correct for the in-memory
// store; database deployments must install a real transaction runner.
func WithStoreTx(tx StoreTx) Option {
	return func(s *Service) { s.tx = tx }
}

// New constructs a Service over the given store.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tracer: otel.Tracer("contactlink/contact"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = newInMemoryStoreTx(store)
	}
	return s
}

// Identify resolves an observation to its consolidated cluster, creating and
// merging contacts as required.
//
// Reads run outside the transaction; every mutation the request needs runs
// inside one RunInTx call; after a merge the cluster is re-read by the
// surviving primary id so the response reflects committed state only.
func (s *Service) Identify(ctx context.Context, req models.IdentifyRequest) (*models.IdentifyResponse, error) {
	req.Normalize()
	if !req.HasIdentifier() {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one of email or phoneNumber is required")
	}

	ctx, span := s.tracer.Start(ctx, "contact.Identify")
	defer span.End()

	matches, err := s.store.FindByEmailOrPhone(ctx, req.Email, req.PhoneNumber)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to find matching contacts")
	}

	if len(matches) == 0 {
		return s.createPrimary(ctx, req)
	}

	cluster, err := s.store.FindByPrimaryIDs(ctx, primaryIDSet(matches))
	if err != nil {
		return nil, wrapStoreErr(err, "failed to expand clusters")
	}

	plan, err := planMutations(cluster, req, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if plan.isNoop() {
		return buildResponse(cluster)
	}

	if err := s.applyPlan(ctx, plan); err != nil {
		return nil, err
	}

	// The committed rows are the single source of truth; the pre-merge
	// snapshot is discarded rather than reconciled.
	final, err := s.store.FindByPrimaryIDs(ctx, []int64{plan.survivor.ID})
	if err != nil {
		return nil, wrapStoreErr(err, "failed to re-read merged cluster")
	}
	return buildResponse(final)
}

// createPrimary handles the no-match branch: a brand-new primary contact.
func (s *Service) createPrimary(ctx context.Context, req models.IdentifyRequest) (*models.IdentifyResponse, error) {
	contact := models.NewPrimary(req.Email, req.PhoneNumber, requestcontext.Now(ctx))

	err := s.tx.RunInTx(ctx, func(txCtx context.Context, store Store) error {
		if err := store.Create(txCtx, contact); err != nil {
			return err
		}
		return s.emitContactCreated(txCtx, contact)
	})
	if err != nil {
		return nil, wrapStoreErr(err, "failed to create primary contact")
	}

	s.observeContactCreated(contact)
	s.logCreated(ctx, contact)
	return buildResponse([]*models.Contact{contact})
}

// applyPlan executes every mutation of the request inside one transaction:
// the optional new secondary, then each losing primary's demotion and the
// re-pointing of its dependents. Any failure rolls the whole set back.
func (s *Service) applyPlan(ctx context.Context, plan *mutationPlan) error {
	ctx, span := s.tracer.Start(ctx, "contact.applyPlan")
	defer span.End()

	err := s.tx.RunInTx(ctx, func(txCtx context.Context, store Store) error {
		if plan.newSecondary != nil {
			if err := store.Create(txCtx, plan.newSecondary); err != nil {
				return err
			}
			if err := s.emitContactCreated(txCtx, plan.newSecondary); err != nil {
				return err
			}
		}
		for _, losing := range plan.demote {
			if err := store.DemoteToSecondary(txCtx, losing.ID, plan.survivor.ID, plan.now); err != nil {
				return err
			}
			if err := store.RelinkSecondaries(txCtx, losing.ID, plan.survivor.ID, plan.now); err != nil {
				return err
			}
			if err := s.emitClusterMerged(txCtx, losing.ID, plan.survivor.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapStoreErr(err, "identify transaction failed")
	}

	if plan.newSecondary != nil {
		s.observeContactCreated(plan.newSecondary)
		s.logCreated(ctx, plan.newSecondary)
	}
	if len(plan.demote) > 0 && s.metrics != nil {
		s.metrics.ClustersMerged.Add(float64(len(plan.demote)))
	}
	return nil
}

// Ping exposes the store liveness probe to the transport layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) observeContactCreated(contact *models.Contact) {
	if s.metrics != nil {
		s.metrics.ContactsCreated.WithLabelValues(string(contact.LinkPrecedence)).Inc()
	}
}

func (s *Service) logCreated(ctx context.Context, contact *models.Contact) {
	if s.logger == nil {
		return
	}
	s.logger.InfoContext(ctx, "contact created",
		"request_id", requestcontext.RequestID(ctx),
		"contact_id", contact.ID,
		"link_precedence", string(contact.LinkPrecedence),
	)
}

func (s *Service) emitContactCreated(ctx context.Context, contact *models.Contact) error {
	if s.audit == nil {
		return nil
	}
	return s.audit.Append(ctx, audit.Event{
		Action:    audit.EventContactCreated,
		Timestamp: requestcontext.Now(ctx),
		ContactID: contact.ID,
		PrimaryID: contact.PrimaryID(),
		RequestID: requestcontext.RequestID(ctx),
	})
}

func (s *Service) emitClusterMerged(ctx context.Context, demotedID, survivorID int64) error {
	if s.audit == nil {
		return nil
	}
	return s.audit.Append(ctx, audit.Event{
		Action:    audit.EventClusterMerged,
		Timestamp: requestcontext.Now(ctx),
		ContactID: demotedID,
		PrimaryID: survivorID,
		RequestID: requestcontext.RequestID(ctx),
	})
}

// primaryIDSet maps seed contacts to the distinct ids of the primaries
// heading their clusters, preserving first-seen order.
func primaryIDSet(seeds []*models.Contact) []int64 {
	seen := make(map[int64]struct{}, len(seeds))
	var ids []int64
	for _, c := range seeds {
		id := c.PrimaryID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// wrapStoreErr translates store failures into coded errors: connectivity
// failures surface as unavailable, everything else as internal. Coded errors
// pass through untouched.
func wrapStoreErr(err error, msg string) error {
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
