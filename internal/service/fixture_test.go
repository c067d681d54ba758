package service

import (
	"testing"

	"motionportal/internal/domain"
	"motionportal/internal/logger"
)

var (
	staff  = domain.Actor{ID: "user-1", Kind: domain.ActorKindUser}
	client = domain.Actor{ID: "client-1", Kind: domain.ActorKindClient}
)

type fixture struct {
	store       *memStore
	events      *recordingEvents
	versions    *VersionService
	annotations *AnnotationService
	comments    *CommentService
	approvals   *ApprovalService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	events := &recordingEvents{}
	log := logger.Nop()

	deliverables := memDeliverables{store}
	versions := memVersions{store}

	return &fixture{
		store:       store,
		events:      events,
		versions:    NewVersionService(store, deliverables, versions, events, log),
		annotations: NewAnnotationService(store, deliverables, memAnnotations{store}, events, log),
		comments:    NewCommentService(store, deliverables, memComments{store}, events, log),
		approvals:   NewApprovalService(store, deliverables, versions, memApprovals{store}, events, log),
	}
}

func ptr[T any](v T) *T { return &v }
