package service

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/objectstore"
	"github.com/louisbranch/baranex/internal/platform/requestctx"
	"github.com/louisbranch/baranex/internal/platform/storage/sqlitedb"
	activitydomain "github.com/louisbranch/baranex/internal/services/activity/domain"
	notifydomain "github.com/louisbranch/baranex/internal/services/notifications/domain"
	"github.com/louisbranch/baranex/internal/services/realtime"
	"github.com/louisbranch/baranex/internal/services/registry/domain"
	registrysqlite "github.com/louisbranch/baranex/internal/services/registry/storage/sqlite"
)

var (
	resident   = requestctx.Principal{UserID: "user-res", Role: "resident", BarangayID: "brgy-1"}
	neighbor   = requestctx.Principal{UserID: "user-nbr", Role: "resident", BarangayID: "brgy-1"}
	official   = requestctx.Principal{UserID: "user-off", Role: "official", BarangayID: "brgy-1"}
	outsider   = requestctx.Principal{UserID: "user-out", Role: "admin", BarangayID: "brgy-2"}
	superadmin = requestctx.Principal{UserID: "user-sup", Role: "superadmin", BarangayID: "brgy-1"}
)

type fakePublisher struct {
	mu      sync.Mutex
	changes []realtime.Change
}

func (p *fakePublisher) Publish(c realtime.Change) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
}

type fakeActivity struct {
	inputs []activitydomain.RecordInput
}

func (a *fakeActivity) Record(_ context.Context, input activitydomain.RecordInput) (activitydomain.Entry, error) {
	a.inputs = append(a.inputs, input)
	return activitydomain.Entry{}, nil
}

type fakeNotifier struct {
	inputs []notifydomain.CreateIntentInput
}

func (n *fakeNotifier) CreateIntent(_ context.Context, input notifydomain.CreateIntentInput) (notifydomain.Notification, error) {
	n.inputs = append(n.inputs, input)
	return notifydomain.Notification{}, nil
}

type harness struct {
	svc      *Service
	pub      *fakePublisher
	activity *fakeActivity
	notes    *fakeNotifier
	now      time.Time
	serials  []int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	db, err := sqlitedb.Open(ctx, filepath.Join(t.TempDir(), "registry.db"), nil, "")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	store, err := registrysqlite.New(ctx, db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	objects, err := objectstore.Open(t.TempDir(), objectstore.DefaultMaxSize)
	if err != nil {
		t.Fatalf("open objects: %v", err)
	}
	h := &harness{
		pub:      &fakePublisher{},
		activity: &fakeActivity{},
		notes:    &fakeNotifier{},
		now:      time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
	}
	h.svc = NewService(store, Config{
		Publisher: h.pub,
		Activity:  h.activity,
		Notifier:  h.notes,
		Objects:   objects,
		Clock:     func() time.Time { return h.now },
		Serial: func() (int, error) {
			if len(h.serials) == 0 {
				return 42, nil
			}
			next := h.serials[0]
			h.serials = h.serials[1:]
			return next, nil
		},
	})
	for _, id := range []string{"brgy-1", "brgy-2"} {
		if _, err := h.svc.PutBarangay(ctx, domain.Barangay{ID: id, Name: "Barangay " + id}); err != nil {
			t.Fatalf("put barangay: %v", err)
		}
	}
	return h
}

func (h *harness) createResident(t *testing.T, caller requestctx.Principal, first string) domain.Resident {
	t.Helper()
	r, err := h.svc.CreateResident(context.Background(), caller, domain.ResidentInput{
		FirstName: first,
		LastName:  "santos",
		Gender:    domain.GenderFemale,
		Birthdate: "1990-02-14",
	})
	if err != nil {
		t.Fatalf("create resident: %v", err)
	}
	return r
}

func wantCode(t *testing.T, err error, code apperrors.Code) {
	t.Helper()
	if got := apperrors.GetCode(err); got != code {
		t.Fatalf("code = %q (err %v), want %q", got, err, code)
	}
}

func TestBarangayExists(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for id, want := range map[string]bool{"brgy-1": true, "brgy-9": false, "": false} {
		got, err := h.svc.BarangayExists(ctx, id)
		if err != nil || got != want {
			t.Fatalf("BarangayExists(%q) = %v, %v; want %v", id, got, err, want)
		}
	}
	if _, err := h.svc.PutBarangay(ctx, domain.Barangay{ID: "Bad ID", Name: "x"}); err == nil {
		t.Fatal("expected invalid slug to be rejected")
	}
}

func TestResidentCRUDPublishesAndRecords(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.CreateResident(ctx, resident, domain.ResidentInput{FirstName: "a", LastName: "b"}); err == nil {
		t.Fatal("expected residents to be denied")
	} else {
		wantCode(t, err, apperrors.CodePermissionDenied)
	}

	r := h.createResident(t, official, "maria")
	if r.FirstName != "Maria" || r.BarangayID != "brgy-1" || r.CreatedBy != official.UserID {
		t.Fatalf("unexpected resident: %+v", r)
	}

	if _, err := h.svc.GetResident(ctx, outsider, r.ID); !errors.Is(err, apperrors.NotFound("")) {
		t.Fatalf("outsider get err = %v, want not found", err)
	}
	if _, err := h.svc.GetResident(ctx, superadmin, r.ID); err != nil {
		t.Fatalf("superadmin get: %v", err)
	}

	updated, err := h.svc.UpdateResident(ctx, official, r.ID, domain.ResidentInput{
		FirstName: "Maria", LastName: "Santos", Gender: domain.GenderFemale, Occupation: "Nurse",
	})
	if err != nil {
		t.Fatalf("update resident: %v", err)
	}
	if updated.Occupation != "Nurse" || !updated.CreatedAt.Equal(r.CreatedAt) {
		t.Fatalf("unexpected update: %+v", updated)
	}
	if err := h.svc.DeleteResident(ctx, official, r.ID); err != nil {
		t.Fatalf("delete resident: %v", err)
	}

	wantTypes := []realtime.ChangeType{realtime.Insert, realtime.Update, realtime.Delete}
	if len(h.pub.changes) != len(wantTypes) {
		t.Fatalf("changes = %d, want %d", len(h.pub.changes), len(wantTypes))
	}
	for i, c := range h.pub.changes {
		if c.Table != TableResidents || c.Type != wantTypes[i] || c.BarangayID != "brgy-1" {
			t.Fatalf("change %d = %+v", i, c)
		}
	}
	wantActions := []string{"resident.create", "resident.update", "resident.delete"}
	for i, in := range h.activity.inputs {
		if in.Action != wantActions[i] || in.ActorUserID != official.UserID || in.EntityID != r.ID {
			t.Fatalf("activity %d = %+v", i, in)
		}
	}
}

func TestSuperadminWritesIntoNamedBarangay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	r, err := h.svc.CreateResident(ctx, superadmin, domain.ResidentInput{BarangayID: "brgy-2", FirstName: "Ana", LastName: "Reyes", Gender: domain.GenderFemale})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.BarangayID != "brgy-2" {
		t.Fatalf("barangay = %q, want brgy-2", r.BarangayID)
	}
	if _, err := h.svc.CreateResident(ctx, superadmin, domain.ResidentInput{BarangayID: "nowhere", FirstName: "A", LastName: "B", Gender: domain.GenderMale}); !errors.Is(err, ErrUnknownBarangay) {
		t.Fatalf("err = %v, want ErrUnknownBarangay", err)
	}
	r, err = h.svc.CreateResident(ctx, official, domain.ResidentInput{BarangayID: "brgy-2", FirstName: "Ana", LastName: "Reyes", Gender: domain.GenderFemale})
	if err != nil {
		t.Fatalf("official create: %v", err)
	}
	if r.BarangayID != "brgy-1" {
		t.Fatalf("official wrote into %q", r.BarangayID)
	}
}

func TestHouseholdMembers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	head := h.createResident(t, official, "pedro")
	hh, err := h.svc.CreateHousehold(ctx, official, domain.HouseholdInput{HouseholdNumber: "hh-7", HeadResidentID: head.ID})
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	if hh.HouseholdNumber != "HH-7" {
		t.Fatalf("household number = %q", hh.HouseholdNumber)
	}
	if _, err := h.svc.CreateHousehold(ctx, official, domain.HouseholdInput{HouseholdNumber: "HH-7"}); err == nil {
		t.Fatal("expected duplicate household number to conflict")
	} else {
		wantCode(t, err, apperrors.CodeConflict)
	}
	if _, err := h.svc.CreateHousehold(ctx, official, domain.HouseholdInput{HouseholdNumber: "HH-8", HeadResidentID: "ghost"}); !errors.Is(err, domain.ErrHouseholdHeadMismatch) {
		t.Fatalf("err = %v, want head mismatch", err)
	}

	head.HouseholdID = hh.ID
	if _, err := h.svc.UpdateResident(ctx, official, head.ID, domain.ResidentInput{
		FirstName: "Pedro", LastName: "Santos", Gender: domain.GenderMale, HouseholdID: hh.ID, HouseholdRole: domain.RoleHead,
	}); err != nil {
		t.Fatalf("attach head: %v", err)
	}
	if _, err := h.svc.CreateResident(ctx, official, domain.ResidentInput{
		FirstName: "Lito", LastName: "Santos", Gender: domain.GenderMale, HouseholdID: hh.ID, HouseholdRole: domain.RoleChild,
	}); err != nil {
		t.Fatalf("create child: %v", err)
	}
	if _, err := h.svc.CreateResident(ctx, official, domain.ResidentInput{
		FirstName: "X", LastName: "Y", Gender: domain.GenderMale, HouseholdID: "missing", HouseholdRole: domain.RoleChild,
	}); err == nil {
		t.Fatal("expected unknown household to be rejected")
	}

	members, err := h.svc.HouseholdMembers(ctx, official, hh.ID)
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 2 || members[0].ID != head.ID || members[1].Relationship != "Son" {
		t.Fatalf("unexpected members: %+v", members)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.createResident(t, official, "maria")

	h.serials = []int{7, 7}
	first, err := h.svc.CreateDocument(ctx, resident, domain.DocumentInput{ResidentID: r.ID, Type: domain.DocClearance, Purpose: "Employment"})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	if first.ControlNumber != "2026-000007" || first.Status != domain.DocPending || first.RequestedBy != resident.UserID {
		t.Fatalf("unexpected document: %+v", first)
	}
	second, err := h.svc.CreateDocument(ctx, resident, domain.DocumentInput{ResidentID: r.ID, Type: domain.DocResidency, Purpose: "School"})
	if err != nil {
		t.Fatalf("create second document: %v", err)
	}
	if second.ControlNumber != "2026-000042" {
		t.Fatalf("control number after collision = %q, want retry value", second.ControlNumber)
	}

	if _, err := h.svc.GetDocument(ctx, neighbor, first.ID); err == nil {
		t.Fatal("expected other residents not to see the request")
	}
	page, err := h.svc.ListDocuments(ctx, neighbor, domain.ListQuery{})
	if err != nil || len(page.Items) != 0 {
		t.Fatalf("neighbor list = %v, %v", page.Items, err)
	}
	page, err = h.svc.ListDocuments(ctx, official, domain.ListQuery{})
	if err != nil || len(page.Items) != 2 {
		t.Fatalf("official list = %d, %v", len(page.Items), err)
	}

	if _, err := h.svc.UpdateDocument(ctx, resident, first.ID, domain.DocumentUpdate{Status: domain.DocProcessing}); err == nil {
		t.Fatal("expected residents not to update requests")
	}
	if _, err := h.svc.UpdateDocument(ctx, official, first.ID, domain.DocumentUpdate{Status: domain.DocReleased}); err == nil {
		t.Fatal("expected pending -> released to be rejected")
	} else {
		wantCode(t, err, apperrors.CodeInvalidTransition)
	}
	for _, status := range []domain.DocumentStatus{domain.DocProcessing, domain.DocReady, domain.DocReleased} {
		h.now = h.now.Add(time.Hour)
		d, err := h.svc.UpdateDocument(ctx, official, first.ID, domain.DocumentUpdate{Status: status})
		if err != nil {
			t.Fatalf("move to %s: %v", status, err)
		}
		if d.Status != status {
			t.Fatalf("status = %s, want %s", d.Status, status)
		}
	}
	got, err := h.svc.GetDocument(ctx, resident, first.ID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if got.ReleasedAt == nil || !got.ReleasedAt.Equal(h.now) {
		t.Fatalf("released_at = %v, want %v", got.ReleasedAt, h.now)
	}
	if len(h.notes.inputs) != 3 {
		t.Fatalf("notifications = %d, want 3", len(h.notes.inputs))
	}
	last := h.notes.inputs[2]
	if last.RecipientUserID != resident.UserID || last.Topic != notifydomain.TopicDocumentStatus {
		t.Fatalf("unexpected notification: %+v", last)
	}
}

func TestIncidentsAndWatchlistAreOfficialOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	in := domain.IncidentInput{
		Category:    "Noise",
		Complainant: "juan dela cruz",
		Narrative:   "Loud karaoke",
		IncidentAt:  h.now.Add(-2 * time.Hour),
	}
	if _, err := h.svc.CreateIncident(ctx, resident, in); err == nil {
		t.Fatal("expected residents to be denied")
	}
	inc, err := h.svc.CreateIncident(ctx, official, in)
	if err != nil {
		t.Fatalf("create incident: %v", err)
	}
	if inc.CaseNumber != "BLT-2026-0001" || inc.Status != domain.IncidentOpen || inc.ReportedBy != official.UserID {
		t.Fatalf("unexpected incident: %+v", inc)
	}
	in.Status = domain.IncidentUnderMediation
	updated, err := h.svc.UpdateIncident(ctx, official, inc.ID, in)
	if err != nil {
		t.Fatalf("update incident: %v", err)
	}
	if updated.CaseNumber != inc.CaseNumber || updated.Status != domain.IncidentUnderMediation {
		t.Fatalf("unexpected update: %+v", updated)
	}

	if _, err := h.svc.CreateWatchlistEntry(ctx, official, domain.WatchlistInput{Name: "x", Reason: "y", IncidentID: "ghost"}); err == nil {
		t.Fatal("expected unknown incident to be rejected")
	}
	w, err := h.svc.CreateWatchlistEntry(ctx, official, domain.WatchlistInput{Name: "pedro", Alias: "Pido", Reason: "Repeat offender", IncidentID: inc.ID})
	if err != nil {
		t.Fatalf("create watchlist: %v", err)
	}
	if !w.Active || w.Name != "Pedro" {
		t.Fatalf("unexpected entry: %+v", w)
	}
	if _, err := h.svc.ListWatchlist(ctx, resident, domain.ListQuery{}); err == nil {
		t.Fatal("expected residents not to list the watchlist")
	}
}

func TestPublishedChangesCarryReadRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.createResident(t, official, "maria")
	d, err := h.svc.CreateDocument(ctx, resident, domain.DocumentInput{ResidentID: r.ID, Type: domain.DocClearance, Purpose: "Employment"})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	if _, err := h.svc.CreateWatchlistEntry(ctx, official, domain.WatchlistInput{Name: "pedro", Reason: "Repeat offender"}); err != nil {
		t.Fatalf("create watchlist: %v", err)
	}
	if _, err := h.svc.CreateAnnouncement(ctx, official, domain.AnnouncementInput{Title: "Draft", Body: "Not yet"}); err != nil {
		t.Fatalf("create draft: %v", err)
	}
	published := h.now.Add(-time.Minute)
	if _, err := h.svc.CreateAnnouncement(ctx, official, domain.AnnouncementInput{Title: "Live", Body: "Now", PublishedAt: &published}); err != nil {
		t.Fatalf("create announcement: %v", err)
	}
	if _, err := h.svc.CreateThread(ctx, resident, domain.ThreadInput{Title: "Streetlights", Body: "Out on Purok 2"}); err != nil {
		t.Fatalf("create thread: %v", err)
	}

	type readers struct{ minRole, owner string }
	want := []readers{
		{"official", ""},            // resident
		{"official", d.RequestedBy}, // document
		{"official", ""},            // watchlist
		{"official", ""},            // draft announcement
		{"", ""},                    // published announcement
		{"", ""},                    // forum thread
	}
	if len(h.pub.changes) != len(want) {
		t.Fatalf("changes = %d, want %d", len(h.pub.changes), len(want))
	}
	for i, c := range h.pub.changes {
		if got := (readers{c.MinRole, c.OwnerUserID}); got != want[i] {
			t.Fatalf("change %d (%s) readers = %+v, want %+v", i, c.Table, got, want[i])
		}
	}
}

func TestAnnouncementsHideDraftsFromResidents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	published := h.now.Add(-time.Hour)

	live, err := h.svc.CreateAnnouncement(ctx, official, domain.AnnouncementInput{Title: "Clean-up drive", Body: "Saturday 6am", PublishedAt: &published})
	if err != nil {
		t.Fatalf("create live: %v", err)
	}
	draft, err := h.svc.CreateAnnouncement(ctx, official, domain.AnnouncementInput{Title: "Draft", Body: "Not yet"})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if _, err := h.svc.CreateAnnouncement(ctx, resident, domain.AnnouncementInput{Title: "x", Body: "y"}); err == nil {
		t.Fatal("expected residents to be denied")
	}

	page, err := h.svc.ListAnnouncements(ctx, resident, domain.ListQuery{})
	if err != nil || len(page.Items) != 1 || page.Items[0].ID != live.ID {
		t.Fatalf("resident list = %+v, %v", page.Items, err)
	}
	if _, err := h.svc.GetAnnouncement(ctx, resident, draft.ID); err == nil {
		t.Fatal("expected draft to be hidden from residents")
	}
	page, err = h.svc.ListAnnouncements(ctx, official, domain.ListQuery{})
	if err != nil || len(page.Items) != 2 {
		t.Fatalf("official list = %d, %v", len(page.Items), err)
	}
}

func TestForumRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	locked := true
	if _, err := h.svc.CreateThread(ctx, resident, domain.ThreadInput{Title: "x", Body: "y", Locked: &locked}); err == nil {
		t.Fatal("expected residents not to lock threads")
	}
	thread, err := h.svc.CreateThread(ctx, resident, domain.ThreadInput{Title: "Water", Body: "Schedule?"})
	if err != nil {
		t.Fatalf("create thread: %v", err)
	}
	post, err := h.svc.CreatePost(ctx, neighbor, thread.ID, domain.PostInput{Body: "Tuesday"})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if _, err := h.svc.UpdateThread(ctx, neighbor, thread.ID, domain.ThreadInput{Title: "Hijack", Body: "x"}); err == nil {
		t.Fatal("expected non-authors to be denied")
	}
	if _, err := h.svc.UpdatePost(ctx, resident, post.ID, domain.PostInput{Body: "edited"}); err == nil {
		t.Fatal("expected only the author to edit a post")
	}
	edited, err := h.svc.UpdatePost(ctx, neighbor, post.ID, domain.PostInput{Body: "Tuesday 9am"})
	if err != nil || edited.Body != "Tuesday 9am" {
		t.Fatalf("edit post = %+v, %v", edited, err)
	}

	if _, err := h.svc.SetThreadLocked(ctx, resident, thread.ID, true); err == nil {
		t.Fatal("expected residents not to lock")
	}
	if _, err := h.svc.SetThreadLocked(ctx, official, thread.ID, true); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := h.svc.CreatePost(ctx, neighbor, thread.ID, domain.PostInput{Body: "late"}); !errors.Is(err, domain.ErrThreadLocked) {
		t.Fatalf("post to locked err = %v, want ErrThreadLocked", err)
	}

	got, err := h.svc.GetThread(ctx, resident, thread.ID)
	if err != nil || got.PostCount != 1 || !got.Locked {
		t.Fatalf("thread = %+v, %v", got, err)
	}
	if err := h.svc.DeletePost(ctx, resident, post.ID); err == nil {
		t.Fatal("expected non-author resident not to delete")
	}
	if err := h.svc.DeletePost(ctx, official, post.ID); err != nil {
		t.Fatalf("official delete post: %v", err)
	}
	if err := h.svc.DeleteThread(ctx, resident, thread.ID); err != nil {
		t.Fatalf("author delete thread: %v", err)
	}
}

func TestUploadIDScanReplacesPrevious(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.createResident(t, official, "maria")

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	first, err := h.svc.UploadIDScan(ctx, official, r.ID, bytes.NewReader(png))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if first.IDScanKey == "" || objectstore.Owner(first.IDScanKey) != "brgy-1" {
		t.Fatalf("id scan key = %q", first.IDScanKey)
	}
	second, err := h.svc.UploadIDScan(ctx, official, r.ID, bytes.NewReader(png))
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if second.IDScanKey == first.IDScanKey {
		t.Fatal("expected a new key")
	}
	if _, err := h.svc.UploadIDScan(ctx, resident, r.ID, bytes.NewReader(png)); err == nil {
		t.Fatal("expected residents to be denied")
	}
}
