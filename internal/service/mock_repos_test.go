package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/model"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/repository"
	pkgerrors "github.com/swaaagray/CvSU-SAOMS-sub006/pkg/errors"
)

// ── in-memory store shared by the mock repositories ──

type memStore struct {
	mu sync.Mutex

	years         map[string]*model.AcademicYear
	semesters     map[string]*model.AcademicSemester
	orgs          map[string]*model.Organization
	councils      map[string]*model.Council
	snapshots     map[string]*model.SemesterSnapshot
	documents     map[string]*model.Document
	users         map[string]*model.User
	ledger        map[model.LedgerKey]*model.ReminderLedgerEntry
	notifications map[string]*model.Notification
	runs          []model.RunReport
	seq           int

	// failure injection
	pingErr          error
	resetCouncilsErr error
	ledgerExistsErr  error
	ledgerConflicts  int // InsertIfAbsent calls that lose to a concurrent writer
}

func newMemStore() *memStore {
	return &memStore{
		years:         make(map[string]*model.AcademicYear),
		semesters:     make(map[string]*model.AcademicSemester),
		orgs:          make(map[string]*model.Organization),
		councils:      make(map[string]*model.Council),
		snapshots:     make(map[string]*model.SemesterSnapshot),
		documents:     make(map[string]*model.Document),
		users:         make(map[string]*model.User),
		ledger:        make(map[model.LedgerKey]*model.ReminderLedgerEntry),
		notifications: make(map[string]*model.Notification),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// repository wires every mock into an aggregate with no database handle.
func (s *memStore) repository() *repository.Repository {
	return &repository.Repository{
		AcademicYear:     &mockAcademicYearRepo{s},
		AcademicSemester: &mockAcademicSemesterRepo{s},
		Organization:     &mockOrganizationRepo{s},
		Council:          &mockCouncilRepo{s},
		SemesterSnapshot: &mockSnapshotRepo{s},
		Document:         &mockDocumentRepo{s},
		ReminderLedger:   &mockLedgerRepo{s},
		Notification:     &mockNotificationRepo{s},
		User:             &mockUserRepo{s},
		RunReport:        &mockRunReportRepo{s},
		Health:           &mockHealthRepo{s},
	}
}

// ── seed helpers ──

func (s *memStore) addYear(id string, start, end time.Time, status model.CalendarStatus) *model.AcademicYear {
	y := &model.AcademicYear{AcademicYearID: id, Name: "AY " + id, StartDate: start, EndDate: end, Status: status}
	s.years[id] = y
	return y
}

func (s *memStore) addSemester(id, yearID string, start, end time.Time, status model.CalendarStatus) *model.AcademicSemester {
	sem := &model.AcademicSemester{AcademicSemesterID: id, AcademicYearID: yearID, Name: "Sem " + id, StartDate: start, EndDate: end, Status: status}
	s.semesters[id] = sem
	return sem
}

func (s *memStore) addOrg(id, yearID string, status model.RecognitionStatus) *model.Organization {
	o := &model.Organization{OrganizationID: id, Name: "Org " + id, AcademicYearID: yearID, RecognitionStatus: status}
	s.orgs[id] = o
	return o
}

func (s *memStore) addCouncil(id, yearID string, status model.RecognitionStatus) *model.Council {
	c := &model.Council{CouncilID: id, Name: "Council " + id, AcademicYearID: yearID, RecognitionStatus: status}
	s.councils[id] = c
	return c
}

func (s *memStore) addUser(id, name string) *model.User {
	u := &model.User{UserID: id, Name: name, Email: id + "@cvsu.edu.ph"}
	s.users[id] = u
	return u
}

func (s *memStore) addNotification(ownerType, ownerID string) *model.Notification {
	n := &model.Notification{
		NotificationID: s.nextID("notif"),
		UserID:         "user-x",
		Type:           "registry_update",
		Title:          "t",
		Content:        "c",
		RelatedType:    &ownerType,
		RelatedID:      &ownerID,
	}
	s.notifications[n.NotificationID] = n
	return n
}

func strPtr(s string) *string { return &s }

// ── Mock AcademicYearRepository ──

type mockAcademicYearRepo struct{ s *memStore }

func (m *mockAcademicYearRepo) ListForUpdate(_ context.Context) ([]model.AcademicYear, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.AcademicYear
	for _, y := range m.s.years {
		out = append(out, *y)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AcademicYearID < out[j].AcademicYearID })
	return out, nil
}

func (m *mockAcademicYearRepo) UpdateStatus(_ context.Context, id string, from, to model.CalendarStatus) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	y, ok := m.s.years[id]
	if !ok || y.Status != from {
		return pkgerrors.ErrOptimisticLock
	}
	y.Status = to
	return nil
}

// ── Mock AcademicSemesterRepository ──

type mockAcademicSemesterRepo struct{ s *memStore }

func (m *mockAcademicSemesterRepo) ListForUpdate(_ context.Context) ([]model.AcademicSemester, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.AcademicSemester
	for _, sem := range m.s.semesters {
		out = append(out, *sem)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AcademicSemesterID < out[j].AcademicSemesterID })
	return out, nil
}

func (m *mockAcademicSemesterRepo) UpdateStatus(_ context.Context, id string, from, to model.CalendarStatus) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sem, ok := m.s.semesters[id]
	if !ok || sem.Status != from {
		return pkgerrors.ErrOptimisticLock
	}
	sem.Status = to
	return nil
}

// ── Mock Organization / Council repositories ──

type mockOrganizationRepo struct{ s *memStore }

func (m *mockOrganizationRepo) ResetRecognitionByYear(_ context.Context, yearID string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, o := range m.s.orgs {
		if o.AcademicYearID == yearID && o.RecognitionStatus != model.RecognitionUnrecognized {
			o.RecognitionStatus = model.RecognitionUnrecognized
			n++
		}
	}
	return n, nil
}

type mockCouncilRepo struct{ s *memStore }

func (m *mockCouncilRepo) ResetRecognitionByYear(_ context.Context, yearID string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.resetCouncilsErr != nil {
		return 0, m.s.resetCouncilsErr
	}
	var n int64
	for _, c := range m.s.councils {
		if c.AcademicYearID == yearID && c.RecognitionStatus != model.RecognitionUnrecognized {
			c.RecognitionStatus = model.RecognitionUnrecognized
			n++
		}
	}
	return n, nil
}

// ── Mock SemesterSnapshotRepository ──

type mockSnapshotRepo struct{ s *memStore }

func (m *mockSnapshotRepo) PurgeBySemester(_ context.Context, semesterID string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for id, snap := range m.s.snapshots {
		if snap.AcademicSemesterID == semesterID {
			delete(m.s.snapshots, id)
			n++
		}
	}
	return n, nil
}

// ── Mock DocumentRepository ──

type mockDocumentRepo struct{ s *memStore }

func (m *mockDocumentRepo) filter(keep func(*model.Document) bool) []model.Document {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Document
	for _, d := range m.s.documents {
		if keep(d) {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out
}

func awaiting(d *model.Document) bool {
	return d.ComplianceStatus == model.ComplianceRejectedWithDeadline && d.ResubmissionDeadline != nil
}

func (m *mockDocumentRepo) ListDeadlinesBetween(_ context.Context, from, to time.Time) ([]model.Document, error) {
	return m.filter(func(d *model.Document) bool {
		return d.ResubmissionDeadline != nil && d.ResubmissionDeadline.After(from) && !d.ResubmissionDeadline.After(to)
	}), nil
}

func (m *mockDocumentRepo) ListAwaiting(_ context.Context, limit int) ([]model.Document, error) {
	out := m.filter(awaiting)
	sort.Slice(out, func(i, j int) bool { return out[i].ResubmissionDeadline.Before(*out[j].ResubmissionDeadline) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockDocumentRepo) CountAwaiting(_ context.Context) (int64, error) {
	return int64(len(m.filter(awaiting))), nil
}

func (m *mockDocumentRepo) CountAwaitingBetween(_ context.Context, from, to time.Time) (int64, error) {
	return int64(len(m.filter(func(d *model.Document) bool {
		return awaiting(d) && !d.ResubmissionDeadline.Before(from) && d.ResubmissionDeadline.Before(to)
	}))), nil
}

func (m *mockDocumentRepo) CountOverdue(_ context.Context, now time.Time) (int64, error) {
	return int64(len(m.filter(func(d *model.Document) bool {
		return awaiting(d) && d.ResubmissionDeadline.Before(now)
	}))), nil
}

// ── Mock ReminderLedgerRepository ──

type mockLedgerRepo struct{ s *memStore }

func ledgerKey(docID, recipientID string, occurrence time.Time) model.LedgerKey {
	return model.LedgerKey{DocumentID: docID, RecipientID: recipientID, DeadlineOccurrence: model.DeadlineOccurrence(occurrence)}
}

func (m *mockLedgerRepo) Exists(_ context.Context, key model.LedgerKey) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.ledgerExistsErr != nil {
		return false, m.s.ledgerExistsErr
	}
	_, ok := m.s.ledger[ledgerKey(key.DocumentID, key.RecipientID, key.DeadlineOccurrence)]
	return ok, nil
}

func (m *mockLedgerRepo) InsertIfAbsent(_ context.Context, e *model.ReminderLedgerEntry) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	k := ledgerKey(e.DocumentID, e.RecipientID, e.DeadlineOccurrence)
	if _, ok := m.s.ledger[k]; ok {
		return false, nil
	}
	cp := *e
	if m.s.ledgerConflicts > 0 {
		m.s.ledgerConflicts--
		cp.LedgerID = "concurrent-run"
		m.s.ledger[k] = &cp
		return false, nil
	}
	m.s.ledger[k] = &cp
	return true, nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct{ s *memStore }

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if n.NotificationID == "" {
		n.NotificationID = m.s.nextID("notif")
	}
	m.s.notifications[n.NotificationID] = n
	return nil
}

func (m *mockNotificationRepo) DeleteOwnedByArchived(_ context.Context) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	yearArchived := func(id string) bool {
		y, ok := m.s.years[id]
		return ok && y.Status == model.CalendarArchived
	}
	owned := func(n *model.Notification) bool {
		if n.RelatedType == nil || n.RelatedID == nil {
			return false
		}
		id := *n.RelatedID
		switch *n.RelatedType {
		case model.OwnerAcademicYear:
			return yearArchived(id)
		case model.OwnerAcademicSemester:
			sem, ok := m.s.semesters[id]
			return ok && sem.Status == model.CalendarArchived
		case model.OwnerOrganization:
			o, ok := m.s.orgs[id]
			return ok && yearArchived(o.AcademicYearID)
		case model.OwnerCouncil:
			c, ok := m.s.councils[id]
			return ok && yearArchived(c.AcademicYearID)
		case model.OwnerDocument:
			d, ok := m.s.documents[id]
			return ok && yearArchived(d.AcademicYearID)
		}
		return false
	}

	var n int64
	for id, notif := range m.s.notifications {
		if owned(notif) {
			delete(m.s.notifications, id)
			n++
		}
	}
	return n, nil
}

// ── Mock UserRepository ──

type mockUserRepo struct{ s *memStore }

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if u, ok := m.s.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.User
	for _, id := range ids {
		if u, ok := m.s.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

// ── Mock RunReportRepository ──

type mockRunReportRepo struct{ s *memStore }

func (m *mockRunReportRepo) Create(_ context.Context, r *model.RunReport) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.runs = append(m.s.runs, *r)
	return nil
}

func (m *mockRunReportRepo) ListRecent(_ context.Context, pipeline string, limit int) ([]model.RunReport, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.RunReport
	for i := len(m.s.runs) - 1; i >= 0; i-- {
		r := m.s.runs[i]
		if pipeline != "" && r.Pipeline != pipeline {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ── Mock HealthRepository ──

type mockHealthRepo struct{ s *memStore }

func (m *mockHealthRepo) Ping(_ context.Context) error {
	return m.s.pingErr
}
