package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"motionportal/internal/domain"
	"motionportal/internal/repository"
)

// memStore хранилище в памяти для тестов сервисов.
// InTx сериализует транзакции и откатывает данные к снимку при ошибке.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	deliverables map[uuid.UUID]domain.Deliverable
	versions     map[uuid.UUID]domain.DeliverableVersion
	annotations  map[uuid.UUID]domain.Annotation
	comments     map[uuid.UUID]domain.TimelineComment
	approvals    []domain.Approval

	clock time.Time

	versionConflicts int
	statusErr        error
	commits          int
}

func newMemStore() *memStore {
	return &memStore{
		deliverables: map[uuid.UUID]domain.Deliverable{},
		versions:     map[uuid.UUID]domain.DeliverableVersion{},
		annotations:  map[uuid.UUID]domain.Annotation{},
		comments:     map[uuid.UUID]domain.TimelineComment{},
		clock:        time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

type memSnapshot struct {
	deliverables map[uuid.UUID]domain.Deliverable
	versions     map[uuid.UUID]domain.DeliverableVersion
	annotations  map[uuid.UUID]domain.Annotation
	comments     map[uuid.UUID]domain.TimelineComment
	approvals    []domain.Approval
}

func (m *memStore) InTx(ctx context.Context, fn func(q repository.DBTX) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snap := memSnapshot{
		deliverables: copyMap(m.deliverables),
		versions:     copyMap(m.versions),
		annotations:  copyMap(m.annotations),
		comments:     copyMap(m.comments),
		approvals:    append([]domain.Approval(nil), m.approvals...),
	}
	m.mu.Unlock()

	if err := fn(nil); err != nil {
		m.mu.Lock()
		m.deliverables = snap.deliverables
		m.versions = snap.versions
		m.annotations = snap.annotations
		m.comments = snap.comments
		m.approvals = snap.approvals
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.commits++
	m.mu.Unlock()
	return nil
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) addDeliverable(version int) domain.Deliverable {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	d := domain.Deliverable{
		ID:        uuid.New(),
		ProjectID: uuid.New(),
		Name:      "Brand film",
		Status:    domain.DeliverableStatusDraft,
		Version:   version,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.deliverables[d.ID] = d
	return d
}

func (m *memStore) deliverable(id uuid.UUID) domain.Deliverable {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deliverables[id]
}

func (m *memStore) countComments(match func(domain.TimelineComment) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.comments {
		if match(c) {
			n++
		}
	}
	return n
}

type memDeliverables struct{ *memStore }

func (m memDeliverables) GetByID(ctx context.Context, q repository.DBTX, id uuid.UUID) (*domain.Deliverable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliverables[id]
	if !ok {
		return nil, domain.NotFoundError("deliverable")
	}
	return &d, nil
}

func (m memDeliverables) GetForUpdate(ctx context.Context, q repository.DBTX, id uuid.UUID) (*domain.Deliverable, error) {
	return m.GetByID(ctx, q, id)
}

func (m memDeliverables) UpdateCurrentFile(ctx context.Context, q repository.DBTX, id uuid.UUID, version int, fileURL string, thumbnailURL *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliverables[id]
	if !ok {
		return domain.NotFoundError("deliverable")
	}
	d.Version = version
	d.FileURL = &fileURL
	d.ThumbnailURL = thumbnailURL
	d.UpdatedAt = m.tick()
	m.deliverables[id] = d
	return nil
}

func (m memDeliverables) UpdateStatus(ctx context.Context, q repository.DBTX, id uuid.UUID, status domain.DeliverableStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusErr != nil {
		return m.statusErr
	}
	d, ok := m.deliverables[id]
	if !ok {
		return domain.NotFoundError("deliverable")
	}
	d.Status = status
	d.UpdatedAt = m.tick()
	m.deliverables[id] = d
	return nil
}

type memVersions struct{ *memStore }

func (m memVersions) Create(ctx context.Context, q repository.DBTX, v *domain.DeliverableVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.versionConflicts > 0 {
		m.versionConflicts--
		return domain.ConflictError("version already exists", nil)
	}
	for _, existing := range m.versions {
		if existing.DeliverableID == v.DeliverableID && existing.VersionNumber == v.VersionNumber {
			return domain.ConflictError("version already exists", nil)
		}
	}
	if _, ok := m.deliverables[v.DeliverableID]; !ok {
		return domain.NotFoundError("deliverable")
	}
	v.CreatedAt = m.tick()
	m.versions[v.ID] = *v
	return nil
}

func (m memVersions) MaxVersionNumber(ctx context.Context, q repository.DBTX, deliverableID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, v := range m.versions {
		if v.DeliverableID == deliverableID && v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	return max, nil
}

func (m memVersions) GetByID(ctx context.Context, q repository.DBTX, id uuid.UUID) (*domain.DeliverableVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.versions[id]
	if !ok {
		return nil, domain.NotFoundError("version")
	}
	return &v, nil
}

func (m memVersions) GetLatest(ctx context.Context, q repository.DBTX, deliverableID uuid.UUID) (*domain.DeliverableVersion, error) {
	list, _ := m.ListByDeliverable(ctx, q, deliverableID)
	if len(list) == 0 {
		return nil, domain.NotFoundError("version")
	}
	return &list[0], nil
}

func (m memVersions) ListByDeliverable(ctx context.Context, q repository.DBTX, deliverableID uuid.UUID) ([]domain.DeliverableVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.DeliverableVersion{}
	for _, v := range m.versions {
		if v.DeliverableID == deliverableID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	return out, nil
}

type memAnnotations struct{ *memStore }

func (m memAnnotations) Create(ctx context.Context, q repository.DBTX, a *domain.Annotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deliverables[a.DeliverableID]; !ok {
		return domain.NotFoundError("deliverable")
	}
	a.CreatedAt = m.tick()
	m.annotations[a.ID] = *a
	return nil
}

func (m memAnnotations) GetByID(ctx context.Context, q repository.DBTX, id uuid.UUID) (*domain.Annotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.annotations[id]
	if !ok {
		return nil, domain.NotFoundError("annotation")
	}
	return &a, nil
}

func (m memAnnotations) ListByDeliverable(ctx context.Context, q repository.DBTX, deliverableID uuid.UUID) ([]domain.Annotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Annotation{}
	for _, a := range m.annotations {
		if a.DeliverableID == deliverableID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp == out[j].Timestamp {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Timestamp < out[j].Timestamp
	})
	return out, nil
}

func (m memAnnotations) Delete(ctx context.Context, q repository.DBTX, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.annotations[id]; !ok {
		return domain.NotFoundError("annotation")
	}
	delete(m.annotations, id)
	return nil
}

type memComments struct{ *memStore }

func (m memComments) Create(ctx context.Context, q repository.DBTX, c *domain.TimelineComment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ParentID != nil {
		if _, ok := m.comments[*c.ParentID]; !ok {
			return domain.NotFoundError("comment")
		}
	}
	now := m.tick()
	c.CreatedAt, c.UpdatedAt = now, now
	stored := *c
	stored.Replies = nil
	m.comments[c.ID] = stored
	return nil
}

func (m memComments) GetByID(ctx context.Context, q repository.DBTX, id uuid.UUID) (*domain.TimelineComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, domain.NotFoundError("comment")
	}
	return &c, nil
}

func (m memComments) list(match func(domain.TimelineComment) bool, less func(a, b domain.TimelineComment) bool) []domain.TimelineComment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.TimelineComment{}
	for _, c := range m.comments {
		if match(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byCreated(a, b domain.TimelineComment) bool { return a.CreatedAt.Before(b.CreatedAt) }

func (m memComments) ListTopLevel(ctx context.Context, q repository.DBTX, deliverableID uuid.UUID) ([]domain.TimelineComment, error) {
	return m.list(
		func(c domain.TimelineComment) bool { return c.DeliverableID == deliverableID && c.ParentID == nil },
		func(a, b domain.TimelineComment) bool {
			if a.Timestamp == b.Timestamp {
				return byCreated(a, b)
			}
			return a.Timestamp < b.Timestamp
		},
	), nil
}

func (m memComments) ListRepliesByDeliverable(ctx context.Context, q repository.DBTX, deliverableID uuid.UUID) ([]domain.TimelineComment, error) {
	return m.list(func(c domain.TimelineComment) bool { return c.DeliverableID == deliverableID && c.ParentID != nil }, byCreated), nil
}

func (m memComments) ListReplies(ctx context.Context, q repository.DBTX, parentID uuid.UUID) ([]domain.TimelineComment, error) {
	return m.list(func(c domain.TimelineComment) bool { return c.ParentID != nil && *c.ParentID == parentID }, byCreated), nil
}

func (m memComments) Update(ctx context.Context, q repository.DBTX, c *domain.TimelineComment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.comments[c.ID]
	if !ok {
		return domain.NotFoundError("comment")
	}
	stored.Content = c.Content
	stored.Resolved = c.Resolved
	stored.UpdatedAt = m.tick()
	c.UpdatedAt = stored.UpdatedAt
	m.comments[c.ID] = stored
	return nil
}

func (m memComments) DeleteReplies(ctx context.Context, q repository.DBTX, parentID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var replies []uuid.UUID
	for id, c := range m.comments {
		if c.ParentID != nil && *c.ParentID == parentID {
			replies = append(replies, id)
		}
	}
	// Внешний ключ не даст удалить ответ, у которого есть свои ответы
	for _, c := range m.comments {
		for _, id := range replies {
			if c.ParentID != nil && *c.ParentID == id {
				return 0, domain.ConflictError("comment replies is still referenced", nil)
			}
		}
	}
	for _, id := range replies {
		delete(m.comments, id)
	}
	return int64(len(replies)), nil
}

// Delete ведет себя как внешний ключ: родителя с ответами удалить нельзя
func (m memComments) Delete(ctx context.Context, q repository.DBTX, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[id]; !ok {
		return domain.NotFoundError("comment")
	}
	for _, c := range m.comments {
		if c.ParentID != nil && *c.ParentID == id {
			return domain.ConflictError("comment still has replies", nil)
		}
	}
	delete(m.comments, id)
	return nil
}

type memApprovals struct{ *memStore }

func (m memApprovals) Create(ctx context.Context, q repository.DBTX, a *domain.Approval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.CreatedAt = m.tick()
	m.approvals = append(m.approvals, *a)
	return nil
}

func (m memApprovals) ListByDeliverable(ctx context.Context, q repository.DBTX, deliverableID uuid.UUID) ([]domain.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Approval{}
	for i := len(m.approvals) - 1; i >= 0; i-- {
		if m.approvals[i].DeliverableID == deliverableID {
			out = append(out, m.approvals[i])
		}
	}
	return out, nil
}

// recordingEvents запоминает опубликованные события
type recordingEvents struct {
	mu     sync.Mutex
	events []domain.ReviewEvent
	err    error
}

func (r *recordingEvents) Publish(ctx context.Context, event domain.ReviewEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingEvents) types() []domain.ReviewEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ReviewEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
