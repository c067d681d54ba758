package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motionportal/internal/domain"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

var (
	dbOnce sync.Once
	testDB *sqlx.DB
	dbErr  error
)

// openTestDB поднимает схему миграциями; без TEST_POSTGRES_DSN тесты пропускаются
func openTestDB(tb testing.TB) *sqlx.DB {
	tb.Helper()

	dbOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			dbErr = errMissingDSN
			return
		}

		m, err := migrate.New("file://../../migrations", dsn)
		if err != nil {
			dbErr = err
			return
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			dbErr = err
			return
		}
		m.Close()

		testDB, dbErr = sqlx.Connect("postgres", dsn)
	})

	if errors.Is(dbErr, errMissingDSN) {
		tb.Skip("set TEST_POSTGRES_DSN to run repository integration tests")
	}
	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return testDB
}

// testTx транзакция, которая откатывается после теста
func testTx(tb testing.TB, db *sqlx.DB) *sqlx.Tx {
	tb.Helper()
	tx, err := db.Beginx()
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = tx.Rollback() })
	return tx
}

func seedDeliverable(t *testing.T, q DBTX, db *sqlx.DB, version int) *domain.Deliverable {
	t.Helper()
	ctx := context.Background()
	projectID := uuid.New()
	_, err := q.ExecContext(ctx, `INSERT INTO projects (id, name) VALUES ($1, $2)`, projectID, "Launch film")
	require.NoError(t, err)

	d := &domain.Deliverable{ProjectID: projectID, Name: "Hero cut", Version: version}
	require.NoError(t, NewDeliverableRepository(db).Create(ctx, q, d))
	return d
}

func TestDeliverableAndVersions(t *testing.T) {
	db := openTestDB(t)
	tx := testTx(t, db)
	ctx := context.Background()

	deliverables := NewDeliverableRepository(db)
	versions := NewVersionRepository(db)
	d := seedDeliverable(t, tx, db, 2)

	locked, err := deliverables.GetForUpdate(ctx, tx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliverableStatusDraft, locked.Status)

	max, err := versions.MaxVersionNumber(ctx, tx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, max)

	list, err := versions.ListByDeliverable(ctx, tx, d.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)

	_, err = versions.GetLatest(ctx, tx, d.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	for _, n := range []int{3, 4} {
		v := &domain.DeliverableVersion{DeliverableID: d.ID, VersionNumber: n, FileURL: "https://cdn/a.mp4", CreatedBy: "u1"}
		require.NoError(t, versions.Create(ctx, tx, v))
		require.NoError(t, deliverables.UpdateCurrentFile(ctx, tx, d.ID, n, v.FileURL, nil))
	}

	latest, err := versions.GetLatest(ctx, tx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, latest.VersionNumber)

	list, err = versions.ListByDeliverable(ctx, tx, d.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 4, list[0].VersionNumber)

	got, err := deliverables.GetByID(ctx, tx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Version)
	require.NotNil(t, got.FileURL)
	assert.Nil(t, got.ThumbnailURL)
}

func TestVersionNumberUnique(t *testing.T) {
	db := openTestDB(t)
	tx := testTx(t, db)
	ctx := context.Background()
	versions := NewVersionRepository(db)
	d := seedDeliverable(t, tx, db, 0)

	require.NoError(t, versions.Create(ctx, tx, &domain.DeliverableVersion{DeliverableID: d.ID, VersionNumber: 1, FileURL: "a", CreatedBy: "u"}))
	err := versions.Create(ctx, tx, &domain.DeliverableVersion{DeliverableID: d.ID, VersionNumber: 1, FileURL: "b", CreatedBy: "u"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestMissingDeliverable(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := NewDeliverableRepository(db).GetByID(ctx, nil, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = NewDeliverableRepository(db).UpdateStatus(ctx, nil, uuid.New(), domain.DeliverableStatusApproved)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAnnotations(t *testing.T) {
	db := openTestDB(t)
	tx := testTx(t, db)
	ctx := context.Background()
	annotations := NewAnnotationRepository(db)
	d := seedDeliverable(t, tx, db, 0)

	late := &domain.Annotation{DeliverableID: d.ID, Type: "rect", Coordinates: domain.Coordinates(`{"x":1,"y":2}`), Color: domain.DefaultAnnotationColor, Timestamp: 12.5, AuthorID: "u1"}
	zero := &domain.Annotation{DeliverableID: d.ID, Type: "point", Coordinates: domain.Coordinates(`{"x":3}`), Color: "#000000", Timestamp: 0, AuthorID: "u1"}
	require.NoError(t, annotations.Create(ctx, tx, late))
	require.NoError(t, annotations.Create(ctx, tx, zero))

	list, err := annotations.ListByDeliverable(ctx, tx, d.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, zero.ID, list[0].ID)
	assert.JSONEq(t, `{"x":1,"y":2}`, string(list[1].Coordinates))

	require.NoError(t, annotations.Delete(ctx, tx, zero.ID))
	assert.ErrorIs(t, annotations.Delete(ctx, tx, zero.ID), domain.ErrNotFound)
}

func TestCommentsRepliesDeletedBeforeParent(t *testing.T) {
	db := openTestDB(t)
	tx := testTx(t, db)
	ctx := context.Background()
	comments := NewCommentRepository(db)
	d := seedDeliverable(t, tx, db, 0)

	parent := &domain.TimelineComment{DeliverableID: d.ID, Content: "Logo too small", Timestamp: 3, AuthorID: "c1", AuthorType: domain.ActorKindClient}
	require.NoError(t, comments.Create(ctx, tx, parent))
	reply := &domain.TimelineComment{DeliverableID: d.ID, Content: "Fixed", Timestamp: 3, AuthorID: "u1", AuthorType: domain.ActorKindUser, ParentID: &parent.ID}
	require.NoError(t, comments.Create(ctx, tx, reply))

	top, err := comments.ListTopLevel(ctx, tx, d.ID)
	require.NoError(t, err)
	require.Len(t, top, 1)

	replies, err := comments.ListRepliesByDeliverable(ctx, tx, d.ID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	require.NotNil(t, replies[0].ParentID)
	assert.Equal(t, parent.ID, *replies[0].ParentID)

	parent.Resolved = true
	require.NoError(t, comments.Update(ctx, tx, parent))
	got, err := comments.GetByID(ctx, tx, parent.ID)
	require.NoError(t, err)
	assert.True(t, got.Resolved)

	// Родитель с ответами не удаляется, откатываемся к точке сохранения, чтобы транзакция теста жила дальше
	_, err = tx.ExecContext(ctx, `SAVEPOINT parent_first`)
	require.NoError(t, err)
	err = comments.Delete(ctx, tx, parent.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT parent_first`)
	require.NoError(t, err)

	n, err := comments.DeleteReplies(ctx, tx, parent.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	require.NoError(t, comments.Delete(ctx, tx, parent.ID))

	left, err := comments.ListReplies(ctx, tx, parent.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestApprovalsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	tx := testTx(t, db)
	ctx := context.Background()
	approvals := NewApprovalRepository(db)
	d := seedDeliverable(t, tx, db, 0)

	first := &domain.Approval{DeliverableID: d.ID, Status: domain.ApprovalStatusChangesRequested, ApproverID: "c1", ApproverType: domain.ActorKindClient}
	require.NoError(t, approvals.Create(ctx, tx, first))
	_, err := tx.ExecContext(ctx, `UPDATE approvals SET created_at = created_at - INTERVAL '1 minute' WHERE id = $1`, first.ID)
	require.NoError(t, err)
	second := &domain.Approval{DeliverableID: d.ID, Status: domain.ApprovalStatusApproved, ApproverID: "c1", ApproverType: domain.ActorKindClient}
	require.NoError(t, approvals.Create(ctx, tx, second))

	list, err := approvals.ListByDeliverable(ctx, tx, d.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Nil(t, list[0].VersionID)

	missingVersion := uuid.New()
	err = approvals.Create(ctx, tx, &domain.Approval{DeliverableID: d.ID, Status: domain.ApprovalStatusApproved, VersionID: &missingVersion, ApproverID: "c1", ApproverType: domain.ActorKindClient})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApprovalsOrderedByInsertWithinTransaction(t *testing.T) {
	db := openTestDB(t)
	tx := testTx(t, db)
	ctx := context.Background()
	approvals := NewApprovalRepository(db)
	d := seedDeliverable(t, tx, db, 0)

	var ids []uuid.UUID
	for _, status := range []domain.ApprovalStatus{
		domain.ApprovalStatusChangesRequested,
		domain.ApprovalStatusApproved,
		domain.ApprovalStatusChangesRequested,
	} {
		a := &domain.Approval{DeliverableID: d.ID, Status: status, ApproverID: "c1", ApproverType: domain.ActorKindClient}
		require.NoError(t, approvals.Create(ctx, tx, a))
		ids = append(ids, a.ID)
	}

	list, err := approvals.ListByDeliverable(ctx, tx, d.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []uuid.UUID{ids[2], ids[1], ids[0]}, []uuid.UUID{list[0].ID, list[1].ID, list[2].ID})
	assert.True(t, list[0].CreatedAt.After(list[2].CreatedAt))
}
