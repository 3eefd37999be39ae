package conversation

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/weilintsai/tutorbot-go/internal/logger"
	"github.com/weilintsai/tutorbot-go/internal/nlu"
)

func newTestManager(cfg Config) *Manager {
	return NewManager(cfg, logger.New("error"))
}

func TestBeginPendingDerivesExpecting(t *testing.T) {
	t.Parallel()
	m := newTestManager(Config{})
	now := time.Now()

	m.BeginPending("u1", nlu.IntentAddCourse, nlu.SlotSet{nlu.SlotCourseName: "數學課"}, now)

	snap := m.Snapshot("u1", now)
	if snap == nil || snap.Intent != nlu.IntentAddCourse {
		t.Fatalf("Snapshot = %+v, want pending add_course", snap)
	}
	if len(snap.Expecting) == 0 || snap.Expecting[0] != nlu.ExpectStudentName {
		t.Errorf("Expecting = %v, want student_name first", snap.Expecting)
	}
	if got, _ := snap.Slots.Get(nlu.SlotCourseName); got != "數學課" {
		t.Errorf("pending slots = %v, want courseName 數學課", snap.Slots)
	}
}

func TestMergePendingRecomputesMissing(t *testing.T) {
	t.Parallel()
	m := newTestManager(Config{})
	now := time.Now()

	m.BeginPending("u1", nlu.IntentAddCourse, nlu.SlotSet{nlu.SlotCourseName: "數學課", nlu.SlotScheduleTime: "15:00"}, now)
	m.MergePending("u1", nlu.SlotSet{nlu.SlotStudentName: "小明"})

	snap := m.Snapshot("u1", now)
	if snap == nil {
		t.Fatal("Snapshot = nil after merge")
	}
	if len(snap.Missing) != 0 {
		t.Errorf("Missing = %v, want none after the merge completed the task", snap.Missing)
	}
	if got, _ := snap.Slots.Get(nlu.SlotStudentName); got != "小明" {
		t.Errorf("merged slots = %v, want studentName 小明", snap.Slots)
	}
}

func TestPendingExpiryClearsBothFields(t *testing.T) {
	t.Parallel()
	m := newTestManager(Config{PendingTTL: 2 * time.Minute})
	start := time.Now()

	m.BeginPending("u1", nlu.IntentAddCourse, nlu.SlotSet{nlu.SlotCourseName: "數學課"}, start)

	snap := m.Snapshot("u1", start.Add(3*time.Minute))
	if snap == nil {
		t.Fatal("Snapshot = nil, context must outlive the pending task")
	}
	if snap.HasPending() {
		t.Errorf("pending survived past its TTL: %+v", snap)
	}
	if len(snap.Expecting) != 0 {
		t.Errorf("Expecting = %v, must be cleared together with the pending task", snap.Expecting)
	}

	// The expiry is applied to stored state, not just the view.
	c := m.Get("u1")
	if c == nil || c.Pending != nil || c.Expecting != nil {
		t.Errorf("stored context = %+v, want pending and expecting both nil", c)
	}
}

func TestClearPendingAtomic(t *testing.T) {
	t.Parallel()
	m := newTestManager(Config{})
	now := time.Now()

	m.BeginPending("u1", nlu.IntentSetReminder, nlu.SlotSet{nlu.SlotContent: "帶課本"}, now)
	m.ClearPending("u1")

	c := m.Get("u1")
	if c == nil {
		t.Fatal("Get = nil, clearing pending must not drop the context")
	}
	if c.Pending != nil || len(c.Expecting) != 0 {
		t.Errorf("context = %+v, want pending and expecting both empty", c)
	}
}

func TestRecordActionEnablesConfirmGate(t *testing.T) {
	t.Parallel()
	m := newTestManager(Config{})
	now := time.Now()

	snap := m.Snapshot("u1", now)
	if snap != nil && snap.HasRecentAction {
		t.Error("HasRecentAction = true before any action")
	}

	m.RecordAction("u1", nlu.IntentAddCourse, nlu.SlotSet{nlu.SlotStudentName: "小明"}, now)

	snap = m.Snapshot("u1", now)
	if snap == nil || !snap.HasRecentAction {
		t.Errorf("Snapshot = %+v, want HasRecentAction true", snap)
	}
	if snap.HasPending() {
		t.Error("executed action left a pending task behind")
	}
}

func TestQueryStudentHint(t *testing.T) {
	t.Parallel()
	m := newTestManager(Config{})

	m.SetQueryStudent("u1", "小明")
	m.NoteEntities("u1", nlu.SlotSet{nlu.SlotStudentName: "小明", nlu.SlotCourseName: "數學課"})

	hints := m.Hints("u1")
	if hints.QueryStudent != "小明" {
		t.Errorf("QueryStudent = %q, want 小明", hints.QueryStudent)
	}
	if len(hints.Students) != 1 || hints.Students[0] != "小明" {
		t.Errorf("Students = %v, want [小明]", hints.Students)
	}
	if len(hints.Courses) != 1 || hints.Courses[0] != "數學課" {
		t.Errorf("Courses = %v, want [數學課]", hints.Courses)
	}
}

func TestQueryStudentHintExpires(t *testing.T) {
	t.Parallel()
	m := newTestManager(Config{QueryTTL: 20 * time.Millisecond})

	m.SetQueryStudent("u1", "小明")
	m.NoteEntities("u1", nlu.SlotSet{nlu.SlotStudentName: "小明"})

	if hints := m.Hints("u1"); hints.QueryStudent != "小明" {
		t.Errorf("QueryStudent = %q, want 小明 before expiry", hints.QueryStudent)
	}

	time.Sleep(50 * time.Millisecond)

	hints := m.Hints("u1")
	if hints.QueryStudent != "" {
		t.Errorf("QueryStudent = %q, want empty after expiry", hints.QueryStudent)
	}
	// The pin is gone even though the context itself lives on.
	if c := m.Get("u1"); c == nil || c.QueryStudent != "" {
		t.Errorf("stored context = %+v, want query pin cleared", c)
	}
	if len(hints.Students) != 1 {
		t.Errorf("Students = %v, recent entities must survive the pin", hints.Students)
	}
}

func TestRecentEntitiesBounded(t *testing.T) {
	t.Parallel()
	m := newTestManager(Config{MaxRecentEntities: 3})

	for i := 0; i < 6; i++ {
		m.NoteEntities("u1", nlu.SlotSet{nlu.SlotStudentName: fmt.Sprintf("學生%c", 'A'+i)})
	}

	hints := m.Hints("u1")
	if len(hints.Students) != 3 {
		t.Errorf("Students = %v, want the 3 most recent", hints.Students)
	}
	if hints.Students[2] != "學生F" {
		t.Errorf("newest student = %q, want 學生F", hints.Students[2])
	}
}

func TestSnapshotReturnsCopies(t *testing.T) {
	t.Parallel()
	m := newTestManager(Config{})
	now := time.Now()

	m.BeginPending("u1", nlu.IntentAddCourse, nlu.SlotSet{nlu.SlotCourseName: "數學課"}, now)

	snap := m.Snapshot("u1", now)
	snap.Slots.Set(nlu.SlotStudentName, "小華")

	again := m.Snapshot("u1", now)
	if again.Slots.Has(nlu.SlotStudentName) {
		t.Error("mutating a snapshot leaked into stored state")
	}
}

func TestConcurrentTurnsSameUser(t *testing.T) {
	t.Parallel()
	m := newTestManager(Config{})
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				m.BeginPending("u1", nlu.IntentAddCourse, nlu.SlotSet{nlu.SlotCourseName: "數學課"}, now)
			} else {
				m.ClearPending("u1")
			}
			m.Snapshot("u1", now)
		}(i)
	}
	wg.Wait()

	// Whatever interleaving happened, pending and expecting moved together.
	c := m.Get("u1")
	if c == nil {
		t.Fatal("context missing after concurrent turns")
	}
	if (c.Pending == nil) != (len(c.Expecting) == 0) {
		t.Errorf("pending/expecting desynced: %+v", c)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	t.Parallel()
	m := newTestManager(Config{})
	now := time.Now()

	m.BeginPending("u1", nlu.IntentAddCourse, nlu.SlotSet{nlu.SlotCourseName: "數學課"}, now)

	if snap := m.Snapshot("u2", now); snap != nil {
		t.Errorf("u2 sees u1's state: %+v", snap)
	}
	if m.ActiveUsers() != 1 {
		t.Errorf("ActiveUsers = %d, want 1", m.ActiveUsers())
	}
}
