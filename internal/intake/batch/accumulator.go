package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"safestep/internal/intake/identity"
	"safestep/internal/intake/models"
	"safestep/internal/intake/store"
	"safestep/pkg/domain"
)

// ErrNothingToInsert is returned by Commit when no writes were staged. No
// storage call is made in that case.
var ErrNothingToInsert = errors.New("nothing to insert")

var tracer = otel.Tracer("safestep/internal/intake/batch")

// Tables names the logical stores the accumulator writes to.
type Tables struct {
	Contact             string
	Responsibility      string
	ResponsibilityIndex string
}

// PendingWrites maps a logical store name to its staged items in order.
type PendingWrites map[string][]store.Item

type linkKey struct {
	ecid    domain.ECID
	greenID domain.GreenID
}

// Accumulator stages contact and responsibility creations for one inbound
// batch and commits them in a single storage call. It lives for exactly one
// batch; every Commit attempt clears it. Staging is safe for concurrent use.
type Accumulator struct {
	mu       sync.Mutex
	store    store.Store
	tables   Tables
	identity string
	logger   *zap.Logger

	pending  PendingWrites
	contacts map[string]domain.ECID
	links    map[linkKey]struct{}
}

// New creates an empty accumulator. identityAttribute is the contact attribute
// used to recognise the same new contact named twice in one batch.
func New(st store.Store, tables Tables, identityAttribute string, logger *zap.Logger) *Accumulator {
	a := &Accumulator{
		store:    st,
		tables:   tables,
		identity: identityAttribute,
		logger:   logger,
	}
	a.resetLocked()
	return a
}

func (a *Accumulator) resetLocked() {
	a.pending = PendingWrites{
		a.tables.Contact:        nil,
		a.tables.Responsibility: nil,
	}
	a.contacts = make(map[string]domain.ECID)
	a.links = make(map[linkKey]struct{})
}

// StageNewEC assigns a fresh ECID to the contact and stages its creation.
// The email is normalized before it is staged.
func (a *Accumulator) StageNewEC(contact models.EmergencyContact) domain.ECID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stageContactLocked(contact)
}

func (a *Accumulator) stageContactLocked(contact models.EmergencyContact) domain.ECID {
	contact.ECID = domain.NewECID()
	contact.Email = identity.Normalize(models.AttrEmail, contact.Email)
	contact.Phone = identity.Normalize(models.AttrPhone, contact.Phone)

	a.pending[a.tables.Contact] = append(a.pending[a.tables.Contact], store.Item(contact.Attributes()))
	if key := contact.Identity(a.identity); key != "" {
		a.contacts[key] = contact.ECID
	}
	return contact.ECID
}

// StageResponsibility stages a pending link between a contact and a green user.
func (a *Accumulator) StageResponsibility(ecid domain.ECID, greenID domain.GreenID) domain.RID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stageLinkLocked(ecid, greenID)
}

func (a *Accumulator) stageLinkLocked(ecid domain.ECID, greenID domain.GreenID) domain.RID {
	resp := models.Responsibility{
		RID:     domain.NewRID(),
		ECID:    ecid,
		GreenID: greenID,
		Status:  models.StatusPending,
	}
	a.pending[a.tables.Responsibility] = append(a.pending[a.tables.Responsibility], store.Item(resp.Attributes()))
	a.links[linkKey{ecid: ecid, greenID: greenID}] = struct{}{}
	return resp.RID
}

// StageNewUserWithResponsibility stages a new contact and its first link.
func (a *Accumulator) StageNewUserWithResponsibility(contact models.EmergencyContact, greenID domain.GreenID) (domain.RID, domain.ECID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ecid := a.stageContactLocked(contact)
	return a.stageLinkLocked(ecid, greenID), ecid
}

// LinkAlreadyStaged reports whether this batch already stages the pair.
func (a *Accumulator) LinkAlreadyStaged(ecid domain.ECID, greenID domain.GreenID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.links[linkKey{ecid: ecid, greenID: greenID}]
	return ok
}

// LinkPersisted reports whether storage already holds a responsibility for the
// pair. It queries the responsibility index on green id and filters by ECID.
func (a *Accumulator) LinkPersisted(ctx context.Context, ecid domain.ECID, greenID domain.GreenID) (bool, error) {
	items, err := a.store.Query(ctx, a.tables.Responsibility, store.KeyCondition{
		Index:     a.tables.ResponsibilityIndex,
		Attribute: models.AttrGreenID,
		Value:     greenID.String(),
	})
	if err != nil {
		return false, fmt.Errorf("look up responsibilities for green id %s: %w", greenID, err)
	}
	for _, item := range items {
		if item[models.AttrECID] == ecid.String() {
			return true, nil
		}
	}
	return false, nil
}

// LinkAlreadyExists reports whether the pair is linked in storage or staged in
// this batch.
func (a *Accumulator) LinkAlreadyExists(ctx context.Context, ecid domain.ECID, greenID domain.GreenID) (bool, error) {
	if a.LinkAlreadyStaged(ecid, greenID) {
		return true, nil
	}
	return a.LinkPersisted(ctx, ecid, greenID)
}

// StagedContact returns the ECID staged in this batch for an identifying
// value, if any.
func (a *Accumulator) StagedContact(value string) (domain.ECID, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ecid, ok := a.contacts[identity.Normalize(a.identity, value)]
	return ecid, ok
}

// LinkRequest describes one validated record ready for staging.
type LinkRequest struct {
	Contact models.EmergencyContact
	GreenID domain.GreenID
	// Existing is the resolved ECID, empty when the contact was not found.
	Existing domain.ECID
	// Persisted is true when storage already links Existing to GreenID.
	Persisted bool
}

// LinkOutcome reports what StageLink staged.
type LinkOutcome struct {
	ECID       domain.ECID
	RID        domain.RID
	NewContact bool
	// Duplicate is true when no responsibility was staged because the pair is
	// already linked.
	Duplicate bool
}

// StageLink decides and stages a record in one critical section: it reuses a
// contact staged earlier in the batch for the same identity, creates the
// contact when it is new, and skips the link when the pair is already staged
// or persisted.
func (a *Accumulator) StageLink(req LinkRequest) LinkOutcome {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := LinkOutcome{ECID: req.Existing}
	if out.ECID.IsNil() {
		if staged, ok := a.contacts[identity.Normalize(a.identity, req.Contact.Identity(a.identity))]; ok {
			out.ECID = staged
		} else {
			out.ECID = a.stageContactLocked(req.Contact)
			out.NewContact = true
		}
	}

	if _, staged := a.links[linkKey{ecid: out.ECID, greenID: req.GreenID}]; staged || req.Persisted {
		out.Duplicate = true
		return out
	}
	out.RID = a.stageLinkLocked(out.ECID, req.GreenID)
	return out
}

// Pending returns a copy of the staged writes.
func (a *Accumulator) Pending() PendingWrites {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(PendingWrites, len(a.pending))
	for table, items := range a.pending {
		copied := make([]store.Item, len(items))
		for i, item := range items {
			copied[i] = item.Clone()
		}
		out[table] = copied
	}
	return out
}

// Commit writes everything staged in one storage call and clears the
// accumulator whatever the outcome, so a redelivered batch never resubmits
// stale items. Stores with nothing staged are left out of the call; when
// nothing at all is staged Commit returns ErrNothingToInsert without calling
// storage. A storage failure is logged and returned; it is not retried.
func (a *Accumulator) Commit(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "batch.commit")
	defer span.End()

	a.mu.Lock()
	defer a.mu.Unlock()
	defer a.resetLocked()

	writes := make(map[string][]store.Item, len(a.pending))
	total := 0
	for table, items := range a.pending {
		if len(items) == 0 {
			continue
		}
		writes[table] = items
		total += len(items)
	}
	span.SetAttributes(attribute.Int("batch.items", total))

	if len(writes) == 0 {
		a.logger.Info("nothing to insert")
		return ErrNothingToInsert
	}

	if err := a.store.BatchWrite(ctx, writes); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch write failed")
		a.logger.Error("batch write failed",
			zap.Int("contacts", len(writes[a.tables.Contact])),
			zap.Int("responsibilities", len(writes[a.tables.Responsibility])),
			zap.Error(err),
		)
		return fmt.Errorf("commit batch: %w", err)
	}

	a.logger.Info("batch committed",
		zap.Int("contacts", len(writes[a.tables.Contact])),
		zap.Int("responsibilities", len(writes[a.tables.Responsibility])),
	)
	return nil
}
