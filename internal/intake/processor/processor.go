package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"safestep/internal/intake/batch"
	"safestep/internal/intake/metrics"
	"safestep/internal/intake/models"
	"safestep/internal/intake/notify"
	"safestep/internal/intake/validation"
	"safestep/internal/queue"
	"safestep/pkg/domain"
	"safestep/pkg/platform/sentinel"
)

//go:generate mockgen -source=processor.go -destination=mocks/mocks.go -package=mocks Resolver,Rememberer,Notifier

var tracer = otel.Tracer("safestep/internal/intake/processor")

// Link policies for contacts that already exist.
const (
	// PolicyGuard skips the link when storage already holds it.
	PolicyGuard = "guard"
	// PolicyAlways stages the link without consulting storage.
	PolicyAlways = "always"
)

// Record outcomes, used as metric labels.
const (
	outcomeAccepted   = "accepted"
	outcomeDuplicate  = "duplicate"
	outcomeInvalid    = "invalid"
	outcomeMalformed  = "malformed"
	outcomeUnresolved = "unresolved"
)

// Resolver maps an identifying value to an existing contact.
type Resolver interface {
	Attribute() string
	Resolve(ctx context.Context, value string) (domain.ECID, error)
}

// Rememberer is implemented by resolvers that can learn contacts created by a
// committed batch.
type Rememberer interface {
	Remember(ctx context.Context, value string, ecid domain.ECID)
}

// Notifier sends the acceptance request for a committed link.
type Notifier interface {
	Notify(ctx context.Context, resp models.Responsibility, contact models.EmergencyContact) notify.Outcome
}

// BatchFactory returns a fresh accumulator for one batch.
type BatchFactory func() *batch.Accumulator

// Rejection is an inbound message the processor could not accept.
type Rejection struct {
	Message queue.Message
	Reason  error
}

// Linked is a responsibility staged for an accepted message.
type Linked struct {
	MessageID      string
	Responsibility models.Responsibility
	Contact        models.EmergencyContact
	NewContact     bool
}

// Result summarises one Process call.
type Result struct {
	// Accepted holds every message that was not rejected, duplicates included.
	Accepted []queue.Message
	Rejected []Rejection
	// Linked holds the responsibilities staged by the batch, in message order.
	Linked []Linked
	// Committed is false only when the storage write failed.
	Committed bool
}

// Processor turns inbound batches into committed contacts and links.
type Processor struct {
	validator         *validation.Validator
	resolver          Resolver
	newBatch          BatchFactory
	notifier          Notifier
	policy            string
	concurrency       int
	notifyConcurrency int
	logger            *zap.Logger
	metrics           *metrics.Metrics
}

type Option func(*Processor)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

// WithLinkPolicy sets PolicyGuard or PolicyAlways.
func WithLinkPolicy(policy string) Option {
	return func(p *Processor) {
		p.policy = policy
	}
}

// WithConcurrency bounds record lookups and notification sends in flight.
func WithConcurrency(records, notifications int) Option {
	return func(p *Processor) {
		if records > 0 {
			p.concurrency = records
		}
		if notifications > 0 {
			p.notifyConcurrency = notifications
		}
	}
}

func New(validator *validation.Validator, resolver Resolver, newBatch BatchFactory, notifier Notifier, opts ...Option) *Processor {
	p := &Processor{
		validator:         validator,
		resolver:          resolver,
		newBatch:          newBatch,
		notifier:          notifier,
		policy:            PolicyGuard,
		concurrency:       1,
		notifyConcurrency: 1,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type recordResult struct {
	outcome batch.LinkOutcome
	contact models.EmergencyContact
	greenID domain.GreenID
	err     error
}

// Process validates, resolves and stages every message, commits the batch once
// and then notifies each new link. A rejected message never stops the others.
func (p *Processor) Process(ctx context.Context, msgs []queue.Message) Result {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "processor.process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.Int("batch.messages", len(msgs))),
	)
	defer span.End()
	defer func() { p.metrics.ObserveBatchLatency(time.Since(start)) }()

	acc := p.newBatch()
	results := make([]recordResult, len(msgs))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, msg := range msgs {
		g.Go(func() error {
			results[i] = p.stage(ctx, acc, msg)
			return nil
		})
	}
	_ = g.Wait()

	var res Result
	for i, msg := range msgs {
		r := results[i]
		if r.err != nil {
			p.metrics.IncrementRecord(rejectionOutcome(r.err))
			p.logger.Warn("record rejected",
				zap.String("message_id", msg.ID),
				zap.Error(r.err),
			)
			res.Rejected = append(res.Rejected, Rejection{Message: msg, Reason: r.err})
			continue
		}

		res.Accepted = append(res.Accepted, msg)
		if r.outcome.Duplicate {
			p.metrics.IncrementRecord(outcomeDuplicate)
			p.logger.Info("link already exists, skipping",
				zap.String("message_id", msg.ID),
				zap.String("ecid", r.outcome.ECID.String()),
				zap.String("green_id", r.greenID.String()),
			)
			continue
		}

		p.metrics.IncrementRecord(outcomeAccepted)
		contact := r.contact
		contact.ECID = r.outcome.ECID
		res.Linked = append(res.Linked, Linked{
			MessageID: msg.ID,
			Responsibility: models.Responsibility{
				RID:     r.outcome.RID,
				ECID:    r.outcome.ECID,
				GreenID: r.greenID,
				Status:  models.StatusPending,
			},
			Contact:    contact,
			NewContact: r.outcome.NewContact,
		})
	}

	res.Committed = p.commit(ctx, acc, res.Linked)
	span.SetAttributes(
		attribute.Int("batch.rejected", len(res.Rejected)),
		attribute.Int("batch.linked", len(res.Linked)),
		attribute.Bool("batch.committed", res.Committed),
	)
	if !res.Committed {
		return res
	}

	p.remember(ctx, res.Linked)
	p.notifyAll(ctx, res.Linked)
	return res
}

func (p *Processor) stage(ctx context.Context, acc *batch.Accumulator, msg queue.Message) recordResult {
	fields, err := ParseRecord(msg.Body)
	if err != nil {
		return recordResult{err: err}
	}

	report := p.validator.Validate(fields)
	if !report.Passed {
		return recordResult{err: &ValidationError{Result: report}}
	}

	greenID, err := domain.ParseGreenID(fields[FieldGreenID])
	if err != nil {
		return recordResult{err: fmt.Errorf("%w: %v", ErrValidation, err)}
	}
	delete(fields, FieldGreenID)

	contact := contactFromFields(fields)
	value := contact.Identity(p.resolver.Attribute())
	if value == "" {
		return recordResult{err: fmt.Errorf("%w: %s is required to identify the contact", ErrValidation, p.resolver.Attribute())}
	}

	existing, err := p.resolver.Resolve(ctx, value)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return recordResult{err: fmt.Errorf("%w: %v", ErrResolution, err)}
	}

	req := batch.LinkRequest{Contact: contact, GreenID: greenID, Existing: existing}
	if !existing.IsNil() && p.policy == PolicyGuard {
		persisted, err := acc.LinkPersisted(ctx, existing, greenID)
		if err != nil {
			return recordResult{err: fmt.Errorf("%w: %v", ErrResolution, err)}
		}
		req.Persisted = persisted
	}

	return recordResult{
		outcome: acc.StageLink(req),
		contact: contact,
		greenID: greenID,
	}
}

// commit reports whether the accepted records are durable. An empty batch
// has nothing to lose and counts as committed.
func (p *Processor) commit(ctx context.Context, acc *batch.Accumulator, linked []Linked) bool {
	err := acc.Commit(ctx)
	switch {
	case err == nil:
		contacts := 0
		for _, l := range linked {
			if l.NewContact {
				contacts++
			}
		}
		p.metrics.ObserveCommit("ok", contacts, len(linked))
		return true
	case errors.Is(err, batch.ErrNothingToInsert):
		p.metrics.ObserveCommit("empty", 0, 0)
		return true
	default:
		p.metrics.ObserveCommit("failed", 0, 0)
		p.logger.Error("batch commit failed, skipping notifications",
			zap.Int("linked", len(linked)),
			zap.Error(err),
		)
		return false
	}
}

func (p *Processor) remember(ctx context.Context, linked []Linked) {
	r, ok := p.resolver.(Rememberer)
	if !ok {
		return
	}
	attr := p.resolver.Attribute()
	for _, l := range linked {
		if l.NewContact {
			r.Remember(ctx, l.Contact.Identity(attr), l.Responsibility.ECID)
		}
	}
}

func (p *Processor) notifyAll(ctx context.Context, linked []Linked) {
	var g errgroup.Group
	g.SetLimit(p.notifyConcurrency)
	for _, l := range linked {
		g.Go(func() error {
			outcome := p.notifier.Notify(ctx, l.Responsibility, l.Contact)
			p.metrics.IncrementNotification(string(outcome))
			return nil
		})
	}
	_ = g.Wait()
}

func rejectionOutcome(err error) string {
	switch {
	case errors.Is(err, ErrMalformed):
		return outcomeMalformed
	case errors.Is(err, ErrValidation):
		return outcomeInvalid
	default:
		return outcomeUnresolved
	}
}
