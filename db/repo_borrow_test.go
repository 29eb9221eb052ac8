package db

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"Gin_postgres_redis_lending/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestAppendNote(t *testing.T) {
	assert.Equal(t, "first", appendNote("", "first"))
	assert.Equal(t, "first\nsecond", appendNote("first", "  second "))
	assert.Equal(t, "first", appendNote("first", "   "))
}

func TestActor_NilIsSystem(t *testing.T) {
	var a *Actor
	assert.Nil(t, a.id())
	assert.Equal(t, "system", a.name())

	b := &Actor{ID: "u1", Username: "alice"}
	require.NotNil(t, b.id())
	assert.Equal(t, "u1", *b.id())
	assert.Equal(t, "alice", b.name())
}

func TestULIDGen_Monotonic(t *testing.T) {
	g := newULIDGen()
	prev := ""
	for i := 0; i < 200; i++ {
		id, err := g.New()
		require.NoError(t, err)
		assert.Len(t, id, 26)
		assert.Greater(t, id, prev)
		prev = id
	}
}

// Integration tests below need a disposable Postgres database.

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRepo(t *testing.T) (*Repo, *fakeClock) {
	t.Helper()
	dsn := os.Getenv("LENDING_TEST_DSN")
	if dsn == "" {
		t.Skip("LENDING_TEST_DSN not set")
	}
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(conn))
	require.NoError(t, conn.Exec("TRUNCATE "+
		models.BorrowLogTable+", "+models.BorrowTable+", "+models.InstanceTable+", "+
		models.ItemTable+", "+models.CategoryTable+", "+models.UserTable+" CASCADE").Error)

	clock := &fakeClock{now: time.Now().UTC().Truncate(time.Second)}
	r := NewRepo(conn, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	r.Clock = clock
	return r, clock
}

func seedUser(t *testing.T, r *Repo, username string, role models.Role, approved bool) Actor {
	t.Helper()
	u := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.test",
		PasswordHash: "x",
		IsActive:     true,
		Role:         role,
		IsApproved:   approved,
	}
	require.NoError(t, r.CreateUser(context.Background(), u))
	return Actor{ID: u.ID, Username: u.Username}
}

func seedItem(t *testing.T, r *Repo, name string, refs ...string) *models.Item {
	t.Helper()
	ctx := context.Background()
	_, err := r.SeedCategories(ctx)
	require.NoError(t, err)
	cats, err := r.ListCategorySummaries(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, cats)

	it, _, err := r.CreateItem(ctx, cats[0].ID, name, "")
	require.NoError(t, err)
	for _, ref := range refs {
		_, err := r.AddInstance(ctx, it.ID, ref, "")
		require.NoError(t, err)
	}
	return it
}

func reloadItem(t *testing.T, r *Repo, id string) *models.Item {
	t.Helper()
	it, err := r.FindItemByID(context.Background(), id)
	require.NoError(t, err)
	return it
}

func instanceStatus(t *testing.T, r *Repo, id string) models.InstanceStatus {
	t.Helper()
	var in models.ItemInstance
	require.NoError(t, r.DB.First(&in, "id = ?", id).Error)
	return in.Status
}

func TestBorrowLifecycle_RequestApproveReturn(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	student := seedUser(t, r, "stud", models.RoleStudent, true)
	handler := seedUser(t, r, "hand", models.RoleHandler, true)
	it := seedItem(t, r, "Laptop", "LAP001")

	b, err := r.RequestBorrow(ctx, student, it.ID, "for lab", nil)
	require.NoError(t, err)
	assert.Equal(t, models.BorrowPending, b.Status)
	require.NotNil(t, b.ItemInstanceID)
	assert.Equal(t, models.InstanceInUse, instanceStatus(t, r, *b.ItemInstanceID))
	assert.Equal(t, 0, reloadItem(t, r, it.ID).Available)

	_, err = r.ApproveBorrow(ctx, b.ID, handler)
	require.NoError(t, err)

	_, err = r.ApproveBorrow(ctx, b.ID, handler)
	assert.Equal(t, ErrCodeNotFound, Code(err))

	ret, err := r.ReturnBorrow(ctx, b.ID, handler, "", "all good")
	require.NoError(t, err)
	assert.Equal(t, models.BorrowReturned, ret.Status)
	assert.NotNil(t, ret.ReturnDate)
	assert.Equal(t, models.InstanceAvailable, instanceStatus(t, r, *b.ItemInstanceID))
	assert.Equal(t, 1, reloadItem(t, r, it.ID).Available)

	logs, err := r.ListBorrowLogs(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, models.ActionReturned, logs[0].Action)
	assert.Equal(t, models.ActionApproved, logs[1].Action)
	assert.Equal(t, models.ActionRequested, logs[2].Action)
	assert.Equal(t, "Borrow request approved by hand", logs[1].Description)
	assert.Equal(t, "Laptop", logs[2].Metadata["item"])
}

func TestRequestBorrow_RefusesDuplicateAndEmptyStock(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	student := seedUser(t, r, "stud", models.RoleStudent, true)
	other := seedUser(t, r, "other", models.RolePersonnel, true)
	it := seedItem(t, r, "Arduino", "ARD001", "ARD002")

	_, err := r.RequestBorrow(ctx, student, it.ID, "", nil)
	require.NoError(t, err)

	_, err = r.RequestBorrow(ctx, student, it.ID, "", nil)
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidArgument, Code(err))
	assert.Contains(t, err.Error(), "You already have a pending request for this item.")

	_, err = r.RequestBorrow(ctx, other, it.ID, "", nil)
	require.NoError(t, err)

	third := seedUser(t, r, "third", models.RoleStudent, true)
	_, err = r.RequestBorrow(ctx, third, it.ID, "", nil)
	assert.Equal(t, ErrCodeInvalidArgument, Code(err))
	assert.Contains(t, err.Error(), "No available instances for this item.")
}

func TestRequestBorrow_LastUnitRace(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	it := seedItem(t, r, "Oscilloscope", "OSC001")

	const n = 6
	actors := make([]Actor, n)
	for i := range actors {
		actors[i] = seedUser(t, r, "racer"+string(rune('a'+i)), models.RoleStudent, true)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.RequestBorrow(ctx, actors[i], it.ID, "", nil)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

func TestRejectBorrow_ReleasesInstance(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	student := seedUser(t, r, "stud", models.RoleStudent, true)
	admin := seedUser(t, r, "boss", models.RoleAdmin, true)
	it := seedItem(t, r, "Camera", "CAM001")

	b, err := r.RequestBorrow(ctx, student, it.ID, "", nil)
	require.NoError(t, err)

	rej, err := r.RejectBorrow(ctx, b.ID, admin, "")
	require.NoError(t, err)
	assert.Equal(t, models.BorrowRejected, rej.Status)
	assert.Equal(t, "Rejected: No reason provided", rej.Notes)
	assert.Equal(t, models.InstanceAvailable, instanceStatus(t, r, *b.ItemInstanceID))

	logs, err := r.ListBorrowLogs(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "No reason provided", logs[0].Metadata["reason"])
}

func TestIllegalTransitionsConflict(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	student := seedUser(t, r, "stud", models.RoleStudent, true)
	handler := seedUser(t, r, "hand", models.RoleHandler, true)
	it := seedItem(t, r, "Drill", "DRL001")

	b, err := r.RequestBorrow(ctx, student, it.ID, "", nil)
	require.NoError(t, err)

	_, err = r.ReturnBorrow(ctx, b.ID, handler, "", "")
	assert.Equal(t, ErrCodeConflict, Code(err))

	_, err = r.MarkNotReturned(ctx, b.ID, handler, models.ReasonLost, "")
	assert.Equal(t, ErrCodeConflict, Code(err))

	logs, err := r.ListBorrowLogs(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestOverdueSweepAndExtension(t *testing.T) {
	r, clock := newTestRepo(t)
	ctx := context.Background()
	student := seedUser(t, r, "stud", models.RoleStudent, true)
	handler := seedUser(t, r, "hand", models.RoleHandler, true)
	it := seedItem(t, r, "Multimeter", "MUL001")

	b, err := r.RequestBorrow(ctx, student, it.ID, "", nil)
	require.NoError(t, err)
	_, err = r.ApproveBorrow(ctx, b.ID, handler)
	require.NoError(t, err)

	_, err = r.MarkLate(ctx, b.ID, &handler)
	assert.Equal(t, ErrCodeInvalidArgument, Code(err))

	clock.Advance(DefaultLoanPeriod + 26*time.Hour)
	late, err := r.MarkOverdueBorrows(ctx, 0)
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, models.BorrowLate, late[0].Status)

	logs, err := r.ListBorrowLogs(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ActionMarkedLate, logs[0].Action)
	assert.Nil(t, logs[0].PerformedBy)
	assert.EqualValues(t, 1, logs[0].Metadata["days_overdue"])

	again, err := r.MarkOverdueBorrows(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, again)

	ext, err := r.ExtendDueDate(ctx, b.ID, handler, clock.Now().Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.BorrowActive, ext.Status)

	logs, err = r.ListBorrowLogs(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ActionDueDateExtended, logs[0].Action)
	assert.Equal(t, "LATE", logs[0].Metadata["status_from"])
	assert.Equal(t, "ACTIVE", logs[0].Metadata["status_to"])
}

func TestWalkInAndNotReturnedDamaged(t *testing.T) {
	r, clock := newTestRepo(t)
	ctx := context.Background()
	student := seedUser(t, r, "stud", models.RoleStudent, true)
	pending := seedUser(t, r, "newbie", models.RoleStudent, false)
	handler := seedUser(t, r, "hand", models.RoleHandler, true)
	it := seedItem(t, r, "Servo", "SRV001")

	var inst models.ItemInstance
	require.NoError(t, r.DB.First(&inst, "reference_id = ?", "SRV001").Error)

	_, err := r.WalkInBorrow(ctx, handler, inst.ID, pending.ID, clock.Now().Add(time.Hour), "")
	assert.Equal(t, ErrCodeForbidden, Code(err))

	b, err := r.WalkInBorrow(ctx, handler, inst.ID, student.ID, clock.Now().Add(time.Hour), "")
	require.NoError(t, err)
	assert.Equal(t, models.BorrowActive, b.Status)
	assert.Equal(t, "Walk-in borrow", b.Notes)

	_, err = r.WalkInBorrow(ctx, handler, inst.ID, student.ID, clock.Now().Add(time.Hour), "")
	assert.Equal(t, ErrCodeInvalidArgument, Code(err))
	assert.Contains(t, err.Error(), "Current status: IN_USE")

	err = r.DeleteInstance(ctx, inst.ID)
	assert.Equal(t, ErrCodeInvalidArgument, Code(err))

	nr, err := r.MarkNotReturned(ctx, b.ID, handler, models.ReasonDamaged, "cracked")
	require.NoError(t, err)
	assert.Equal(t, models.BorrowNotReturned, nr.Status)
	assert.Equal(t, models.InstanceFaulty, instanceStatus(t, r, inst.ID))
	assert.Equal(t, 0, reloadItem(t, r, it.ID).Available)
	assert.Equal(t, 1, reloadItem(t, r, it.ID).Quantity)
}

func TestInstanceAdmin(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	it := seedItem(t, r, "Keyboard", "KEY001")

	_, err := r.AddInstance(ctx, it.ID, "KEY001", "")
	assert.Equal(t, ErrCodeInvalidArgument, Code(err))

	in, err := r.AddInstance(ctx, it.ID, "KEY002", "spare")
	require.NoError(t, err)
	assert.Equal(t, 2, reloadItem(t, r, it.ID).Quantity)

	faulty := models.InstanceFaulty
	_, err = r.UpdateInstance(ctx, in.ID, UpdateInstanceInput{Status: &faulty})
	require.NoError(t, err)
	assert.Equal(t, 1, reloadItem(t, r, it.ID).Available)

	bogus := models.InstanceStatus("BROKEN")
	notes := "checked"
	up, err := r.UpdateInstance(ctx, in.ID, UpdateInstanceInput{Status: &bogus, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, models.InstanceFaulty, up.Status)
	assert.Equal(t, "checked", up.Notes)

	require.NoError(t, r.DeleteInstance(ctx, in.ID))
	assert.Equal(t, 1, reloadItem(t, r, it.ID).Quantity)

	scan, err := r.ScanInstance(ctx, "KEY001")
	require.NoError(t, err)
	assert.Equal(t, "Keyboard", scan.ItemName)
	assert.Equal(t, "Devices", scan.Category)
}

func TestInstanceAdmin_OpenBorrowGuards(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	student := seedUser(t, r, "stud", models.RoleStudent, true)
	it := seedItem(t, r, "Soldering Iron", "SOL001")

	b, err := r.RequestBorrow(ctx, student, it.ID, "", nil)
	require.NoError(t, err)
	instID := *b.ItemInstanceID

	inRepair := models.InstanceInRepair
	_, err = r.UpdateInstance(ctx, instID, UpdateInstanceInput{Status: &inRepair})
	assert.Equal(t, ErrCodeConflict, Code(err))
	assert.Equal(t, models.InstanceInUse, instanceStatus(t, r, instID))

	notes := "tip replaced"
	up, err := r.UpdateInstance(ctx, instID, UpdateInstanceInput{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "tip replaced", up.Notes)

	err = r.DeleteInstance(ctx, instID)
	assert.Equal(t, ErrCodeInvalidArgument, Code(err))
	assert.Contains(t, err.Error(), "Cannot delete item instance with a pending borrow request.")
	assert.Equal(t, 1, reloadItem(t, r, it.ID).Quantity)
}

func TestReturnBorrow_ConditionAndLateness(t *testing.T) {
	cases := []struct {
		name      string
		condition models.InstanceStatus
		late      bool
	}{
		{"faulty on time", models.InstanceFaulty, false},
		{"in repair after late", models.InstanceInRepair, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, clock := newTestRepo(t)
			ctx := context.Background()
			student := seedUser(t, r, "stud", models.RoleStudent, true)
			handler := seedUser(t, r, "hand", models.RoleHandler, true)
			it := seedItem(t, r, "Projector", "PRJ001")

			b, err := r.RequestBorrow(ctx, student, it.ID, "", nil)
			require.NoError(t, err)
			_, err = r.ApproveBorrow(ctx, b.ID, handler)
			require.NoError(t, err)
			if tc.late {
				clock.Advance(DefaultLoanPeriod + 25*time.Hour)
				late, err := r.MarkOverdueBorrows(ctx, 0)
				require.NoError(t, err)
				require.Len(t, late, 1)
			}

			ret, err := r.ReturnBorrow(ctx, b.ID, handler, tc.condition, "")
			require.NoError(t, err)
			assert.Equal(t, models.BorrowReturned, ret.Status)
			assert.Equal(t, tc.condition, instanceStatus(t, r, *b.ItemInstanceID))
			assert.Equal(t, 0, reloadItem(t, r, it.ID).Available)

			logs, err := r.ListBorrowLogs(ctx, b.ID)
			require.NoError(t, err)
			assert.Equal(t, models.ActionReturned, logs[0].Action)
			assert.Equal(t, tc.late, logs[0].Metadata["was_late"])
			assert.Equal(t, string(tc.condition), logs[0].Metadata["instance_status"])
		})
	}
}

func TestAddNote_SingleLogRow(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	student := seedUser(t, r, "stud", models.RoleStudent, true)
	handler := seedUser(t, r, "hand", models.RoleHandler, true)
	it := seedItem(t, r, "Tripod", "TRI001")

	b, err := r.RequestBorrow(ctx, student, it.ID, "first", nil)
	require.NoError(t, err)

	_, err = r.AddNote(ctx, b.ID, handler, "   ")
	assert.Equal(t, ErrCodeInvalidArgument, Code(err))
	assert.Contains(t, err.Error(), "Note is required.")

	noted, err := r.AddNote(ctx, b.ID, handler, "checked cables")
	require.NoError(t, err)
	assert.Equal(t, "first\nchecked cables", noted.Notes)

	logs, err := r.ListBorrowLogs(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.ActionNoteAdded, logs[0].Action)
	assert.Equal(t, "checked cables", logs[0].Metadata["note"])
	assert.Equal(t, models.ActionRequested, logs[1].Action)
}

func TestCreateBorrowRequest_LogsCreated(t *testing.T) {
	r, clock := newTestRepo(t)
	ctx := context.Background()
	student := seedUser(t, r, "stud", models.RoleStudent, true)
	it := seedItem(t, r, "Router", "RTR001")

	b, err := r.CreateBorrowRequest(ctx, student, it.ID, clock.Now().Add(48*time.Hour), "")
	require.NoError(t, err)
	assert.Equal(t, models.BorrowPending, b.Status)

	logs, err := r.ListBorrowLogs(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionCreated, logs[0].Action)
	assert.Equal(t, "Borrow request created by stud", logs[0].Description)
}

func TestWalkInAndRequestRaceForLastUnit(t *testing.T) {
	r, clock := newTestRepo(t)
	ctx := context.Background()
	walker := seedUser(t, r, "walker", models.RoleStudent, true)
	requester := seedUser(t, r, "requester", models.RoleStudent, true)
	handler := seedUser(t, r, "hand", models.RoleHandler, true)
	it := seedItem(t, r, "Logic Analyzer", "LGA001")

	var inst models.ItemInstance
	require.NoError(t, r.DB.First(&inst, "reference_id = ?", "LGA001").Error)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = r.WalkInBorrow(ctx, handler, inst.ID, walker.ID, clock.Now().Add(time.Hour), "")
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = r.RequestBorrow(ctx, requester, it.ID, "", nil)
	}()
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.Contains(t, []string{ErrCodeInvalidArgument, ErrCodeConflict}, Code(err))
		}
	}
	assert.Equal(t, 1, wins)

	var open int64
	require.NoError(t, r.DB.Model(&models.Borrow{}).
		Where("item_instance_id = ? AND status IN ?", inst.ID, models.OpenBorrowStatuses).
		Count(&open).Error)
	assert.EqualValues(t, 1, open)
	assert.Equal(t, 0, reloadItem(t, r, it.ID).Available)
}

func TestBorrowerViews_LateAndNotReturned(t *testing.T) {
	r, clock := newTestRepo(t)
	ctx := context.Background()
	student := seedUser(t, r, "stud", models.RoleStudent, true)
	handler := seedUser(t, r, "hand", models.RoleHandler, true)
	lateItem := seedItem(t, r, "Camera", "CAM001")
	lostItem := seedItem(t, r, "Lens", "LEN001")

	late, err := r.RequestBorrow(ctx, student, lateItem.ID, "", nil)
	require.NoError(t, err)
	_, err = r.ApproveBorrow(ctx, late.ID, handler)
	require.NoError(t, err)
	lost, err := r.RequestBorrow(ctx, student, lostItem.ID, "", nil)
	require.NoError(t, err)
	_, err = r.ApproveBorrow(ctx, lost.ID, handler)
	require.NoError(t, err)

	clock.Advance(DefaultLoanPeriod + 25*time.Hour)
	flipped, err := r.MarkOverdueBorrows(ctx, 0)
	require.NoError(t, err)
	require.Len(t, flipped, 2)
	_, err = r.MarkNotReturned(ctx, lost.ID, handler, models.ReasonLost, "")
	require.NoError(t, err)

	active, err := r.ListMyBorrows(ctx, student.ID, MyBorrowsActive, 0)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, late.ID, active[0].ID)
	assert.Equal(t, models.BorrowLate, active[0].Status)

	history, err := r.ListMyBorrows(ctx, student.ID, MyBorrowsHistory, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, lost.ID, history[0].ID)
	assert.Equal(t, models.BorrowNotReturned, history[0].Status)

	stats, err := r.BorrowerStats(ctx, student.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.ActiveBorrows)
	assert.EqualValues(t, 1, stats.OverdueItems)
	assert.EqualValues(t, 0, stats.PendingRequests)
	assert.EqualValues(t, 2, stats.TotalBorrowed)
}

func TestNotifications(t *testing.T) {
	r, clock := newTestRepo(t)
	ctx := context.Background()
	student := seedUser(t, r, "stud", models.RoleStudent, true)
	handler := seedUser(t, r, "hand", models.RoleHandler, true)
	approvedItem := seedItem(t, r, "Laptop", "LAP001")
	rejectedItem := seedItem(t, r, "Drone", "DRN001")
	overdueItem := seedItem(t, r, "Arduino", "ARD001")

	ok, err := r.RequestBorrow(ctx, student, approvedItem.ID, "", nil)
	require.NoError(t, err)
	_, err = r.ApproveBorrow(ctx, ok.ID, handler)
	require.NoError(t, err)

	no, err := r.RequestBorrow(ctx, student, rejectedItem.ID, "", nil)
	require.NoError(t, err)
	_, err = r.RejectBorrow(ctx, no.ID, handler, "not for beginners")
	require.NoError(t, err)

	var inst models.ItemInstance
	require.NoError(t, r.DB.First(&inst, "reference_id = ?", "ARD001").Error)
	_, err = r.WalkInBorrow(ctx, handler, inst.ID, student.ID, clock.Now().Add(time.Hour), "")
	require.NoError(t, err)

	clock.Advance(49 * time.Hour)
	ns, err := r.Notifications(ctx, student.ID)
	require.NoError(t, err)

	byType := map[string][]Notification{}
	for _, n := range ns {
		byType[n.Type] = append(byType[n.Type], n)
	}
	assert.Len(t, byType[NotifyApproved], 2)
	require.Len(t, byType[NotifyRejected], 1)
	assert.Equal(t, "rejected_"+no.ID, byType[NotifyRejected][0].ID)
	assert.Contains(t, byType[NotifyRejected][0].Message, "not for beginners")
	require.Len(t, byType[NotifyOverdue], 1)
	assert.Equal(t, overdueItem.Name, byType[NotifyOverdue][0].ItemName)
	assert.Equal(t, 2, byType[NotifyOverdue][0].DaysOverdue)
	assert.Equal(t, "Arduino (ARD001) is 2 day(s) overdue. Please return it ASAP.", byType[NotifyOverdue][0].Message)

	for i := 1; i < len(ns); i++ {
		assert.False(t, ns[i].Timestamp.After(ns[i-1].Timestamp), "notifications newest first")
	}
}

func TestDeleteUser_RefusedWhileBorrowOpen(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	student := seedUser(t, r, "stud", models.RoleStudent, true)
	handler := seedUser(t, r, "hand", models.RoleHandler, true)
	it := seedItem(t, r, "Headset", "HDS001")

	b, err := r.RequestBorrow(ctx, student, it.ID, "", nil)
	require.NoError(t, err)
	_, err = r.ApproveBorrow(ctx, b.ID, handler)
	require.NoError(t, err)

	err = r.DeleteUserByID(ctx, student.ID)
	assert.Equal(t, ErrCodeConflict, Code(err))
	assert.Equal(t, models.InstanceInUse, instanceStatus(t, r, *b.ItemInstanceID))

	_, err = r.ReturnBorrow(ctx, b.ID, handler, "", "")
	require.NoError(t, err)
	require.NoError(t, r.DeleteUserByID(ctx, student.ID))

	var borrows, logs int64
	require.NoError(t, r.DB.Model(&models.Borrow{}).Where("id = ?", b.ID).Count(&borrows).Error)
	require.NoError(t, r.DB.Model(&models.BorrowLog{}).Where("borrow_id = ?", b.ID).Count(&logs).Error)
	assert.Zero(t, borrows)
	assert.Zero(t, logs)
	assert.Equal(t, models.InstanceAvailable, instanceStatus(t, r, *b.ItemInstanceID))
	assert.Equal(t, 1, reloadItem(t, r, it.ID).Available)

	err = r.DeleteUserByID(ctx, student.ID)
	assert.Equal(t, ErrCodeNotFound, Code(err))
}

func TestFindApprovedUserByUsername(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, r, "card42", models.RoleStudent, true)
	seedUser(t, r, "newbie", models.RoleStudent, false)

	u, err := r.FindApprovedUserByUsername(ctx, "card42")
	require.NoError(t, err)
	assert.Equal(t, "card42", u.Username)

	_, err = r.FindApprovedUserByUsername(ctx, "nobody")
	assert.Equal(t, ErrCodeNotFound, Code(err))
	assert.Contains(t, err.Error(), "User not found with this RFID.")

	_, err = r.FindApprovedUserByUsername(ctx, "newbie")
	assert.Equal(t, ErrCodeForbidden, Code(err))
}

func TestRecountItem_StampsRepoClock(t *testing.T) {
	r, clock := newTestRepo(t)
	ctx := context.Background()
	it := seedItem(t, r, "Monitor", "MON001")

	clock.Advance(72 * time.Hour)
	_, err := r.AddInstance(ctx, it.ID, "MON002", "")
	require.NoError(t, err)

	got := reloadItem(t, r, it.ID)
	assert.Equal(t, 2, got.Quantity)
	assert.True(t, got.UpdatedAt.Equal(clock.Now()), "updated_at %s, clock %s", got.UpdatedAt, clock.Now())
}
