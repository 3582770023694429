//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"safestep/internal/intake/models"
	"safestep/internal/intake/store"
	"safestep/internal/intake/store/postgres"
	"safestep/pkg/domain"
	"safestep/pkg/platform/sentinel"
	"safestep/pkg/testutil/containers"
)

var schema = postgres.Schema{
	ContactTable:        "emergency_contacts",
	ContactIndex:        "email_index",
	IdentityColumn:      models.AttrEmail,
	ResponsibilityTable: "responsibilities",
	GreenIndex:          "green_id_index",
}

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background(), schema))
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), schema.ContactTable, schema.ResponsibilityTable)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestEnsureSchemaIsIdempotent() {
	s.NoError(s.store.EnsureSchema(context.Background(), schema))
}

func (s *PostgresStoreSuite) TestBatchWriteThenQueryByIndex() {
	ctx := context.Background()
	ecid := domain.NewECID()
	contact := models.EmergencyContact{ECID: ecid, FirstName: "Ann", Email: "ann@example.com"}
	link := models.Responsibility{RID: domain.NewRID(), ECID: ecid, GreenID: "g1", Status: models.StatusPending}

	err := s.store.BatchWrite(ctx, map[string][]store.Item{
		schema.ContactTable:        {store.Item(contact.Attributes())},
		schema.ResponsibilityTable: {store.Item(link.Attributes())},
	})
	s.Require().NoError(err)

	contacts, err := s.store.Query(ctx, schema.ContactTable, store.KeyCondition{
		Index: schema.ContactIndex, Attribute: models.AttrEmail, Value: "ann@example.com",
	})
	s.Require().NoError(err)
	s.Require().Len(contacts, 1)

	got, err := models.ContactFromAttributes(contacts[0])
	s.Require().NoError(err)
	s.Equal(contact, got)

	links, err := s.store.Query(ctx, schema.ResponsibilityTable, store.KeyCondition{
		Index: schema.GreenIndex, Attribute: models.AttrGreenID, Value: "g1",
	})
	s.Require().NoError(err)
	s.Require().Len(links, 1)
	s.Equal(ecid.String(), links[0][models.AttrECID])
	s.Equal(string(models.StatusPending), links[0][models.AttrStatus])
}

func (s *PostgresStoreSuite) TestBatchWriteIsAtomic() {
	ctx := context.Background()
	ecid := domain.NewECID()
	item := store.Item(models.EmergencyContact{ECID: ecid, FirstName: "Ann", Email: "a@b.com"}.Attributes())

	err := s.store.BatchWrite(ctx, map[string][]store.Item{
		schema.ContactTable: {item, item},
	})
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	contacts, err := s.store.Query(ctx, schema.ContactTable, store.KeyCondition{Attribute: models.AttrEmail, Value: "a@b.com"})
	s.Require().NoError(err)
	s.Empty(contacts)
}
