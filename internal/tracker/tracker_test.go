package tracker_test

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/campday/cornerquest/internal/cache"
	"github.com/campday/cornerquest/internal/corners"
	"github.com/campday/cornerquest/internal/database"
	"github.com/campday/cornerquest/internal/migrations"
	"github.com/campday/cornerquest/internal/store"
	"github.com/campday/cornerquest/internal/tracker"
)

type recorder struct {
	mu     sync.Mutex
	events []tracker.Event
}

func (r *recorder) Publish(_ int, ev tracker.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	ctl    *tracker.Controller
	db     *sql.DB
	cache  *cache.Memory
	events *recorder
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, "sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(db, "sqlite"); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	st, err := store.New(db, "sqlite")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	catalog, err := corners.DefaultCatalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if err := st.SeedGroups(ctx, catalog.Groups()); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	f := fixture{db: db, cache: cache.NewMemory(), events: &recorder{}}
	f.ctl = tracker.New(catalog, corners.DefaultPolicy, st, f.cache, f.events, slog.New(slog.DiscardHandler))
	return f
}

func assertProgress(t *testing.T, p corners.Progress, index int, completed []int, total int) {
	t.Helper()
	if p.CurrentStationIndex != index || !slices.Equal(p.CompletedStationIDs, completed) || p.TotalScore != total {
		t.Errorf("progress = {index:%d completed:%v total:%d}, want {index:%d completed:%v total:%d}",
			p.CurrentStationIndex, p.CompletedStationIDs, p.TotalScore, index, completed, total)
	}
}

func assertConsistent(t *testing.T, ctl *tracker.Controller, groupID int) {
	t.Helper()
	a, err := ctl.Audit(context.Background(), groupID)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if !a.Consistent {
		t.Errorf("group %d inconsistent: %+v", groupID, a)
	}
}

func TestRecordOutcomeFirstStation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tr, err := f.ctl.RecordOutcome(ctx, 7, corners.Award{Outcome: corners.OutcomeWin, Bonus: 2})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if tr.Entry.StationID != 4 || tr.Entry.Score != 42 || tr.Entry.BaseScore != 40 || tr.Entry.BonusScore != 2 {
		t.Errorf("entry = %+v", tr.Entry)
	}
	assertProgress(t, tr.Progress, 1, []int{4}, 42)
	if tr.State != corners.StateInProgress {
		t.Errorf("state = %s", tr.State)
	}
	if tr.Next == nil || tr.Next.ID != 5 {
		t.Errorf("next = %+v, want station 5", tr.Next)
	}
	assertConsistent(t, f.ctl, 7)

	snap, ok, _ := f.cache.Get(ctx, 7)
	if !ok || snap.Progress.TotalScore != 42 {
		t.Errorf("cache = %+v, %v", snap, ok)
	}
	if got := f.events.types(); !slices.Equal(got, []string{tracker.EventStationCompleted}) {
		t.Errorf("events = %v", got)
	}
}

func TestCorrectOutcomeKeepsIndex(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.ctl.RecordOutcome(ctx, 7, corners.Award{Outcome: corners.OutcomeWin, Bonus: 2}); err != nil {
		t.Fatalf("record: %v", err)
	}
	c, err := f.ctl.CorrectOutcome(ctx, 7, 4, corners.Award{Outcome: corners.OutcomeDraw})
	if err != nil {
		t.Fatalf("correct: %v", err)
	}
	if c.PriorScore != 42 || c.NewScore != 30 || c.Delta != -12 || c.NewGroupTotal != 30 {
		t.Errorf("correction = %+v", c)
	}
	assertProgress(t, c.Progress, 1, []int{4}, 30)

	e, err := f.ctl.Entry(ctx, 7, 4)
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if e.Score != 30 || e.OutcomeType != corners.OutcomeDraw {
		t.Errorf("entry = %+v", e)
	}
	assertConsistent(t, f.ctl, 7)
}

func TestCorrectOutcomeRejectsPendingStation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		station int
		want    error
	}{
		{"never loaded", 4, corners.ErrNotCompleted},
		{"not in rotation", 99, corners.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ctl.CorrectOutcome(ctx, 7, tt.station, corners.Award{Outcome: corners.OutcomeWin})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := f.ctl.RecordOutcome(ctx, 7, corners.Award{Outcome: corners.OutcomeLose}); err != nil {
		t.Fatalf("record: %v", err)
	}
	_, err := f.ctl.CorrectOutcome(ctx, 7, 5, corners.Award{Outcome: corners.OutcomeWin})
	if !errors.Is(err, corners.ErrNotCompleted) || !errors.Is(err, corners.ErrInvalidState) {
		t.Errorf("current station correction err = %v", err)
	}
	if _, err := f.ctl.Entry(ctx, 7, 5); !errors.Is(err, corners.ErrNotFound) {
		t.Errorf("rejected correction wrote an entry: %v", err)
	}
}

func TestLoadCreatesZeroProgressOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.ctl.Load(ctx, 3)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertProgress(t, first, 0, []int{}, 0)

	second, err := f.ctl.Load(ctx, 3)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if second.UpdatedAt != first.UpdatedAt {
		t.Errorf("second load rewrote the row: %q vs %q", second.UpdatedAt, first.UpdatedAt)
	}
	assertProgress(t, second, 0, []int{}, 0)
}

func TestRotationCompletes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var last corners.Progress
	for i := range 10 {
		tr, err := f.ctl.RecordOutcome(ctx, 7, corners.Award{Outcome: corners.OutcomeDraw, Bonus: i % 3})
		if err != nil {
			t.Fatalf("step %d: %v", i+1, err)
		}
		last = tr.Progress
	}
	if last.CurrentStationIndex != 10 || len(last.CompletedStationIDs) != 10 {
		t.Fatalf("after rotation = %+v", last)
	}

	_, err := f.ctl.RecordOutcome(ctx, 7, corners.Award{Outcome: corners.OutcomeWin})
	if !errors.Is(err, corners.ErrAlreadyComplete) {
		t.Fatalf("11th record err = %v, want ErrAlreadyComplete", err)
	}

	got, err := f.ctl.Load(ctx, 7)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertProgress(t, got, last.CurrentStationIndex, last.CompletedStationIDs, last.TotalScore)
	if got.UpdatedAt != last.UpdatedAt {
		t.Errorf("rejected step touched progress")
	}

	view, err := f.ctl.Snapshot(ctx, 7)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if view.State != corners.StateCompleted || view.Current != nil || view.Stale {
		t.Errorf("view = %+v", view)
	}
	assertConsistent(t, f.ctl, 7)
}

func TestBonusClamping(t *testing.T) {
	tests := []struct {
		name  string
		award corners.Award
		want  int
	}{
		{"negative bonus", corners.Award{Outcome: corners.OutcomeWin, Bonus: -3}, 40},
		{"bonus at max", corners.Award{Outcome: corners.OutcomeLose, Bonus: 5}, 15},
		{"bonus over max", corners.Award{Outcome: corners.OutcomeDraw, Bonus: 15}, 35},
		{"manual base", corners.Award{Outcome: corners.OutcomeManual, Base: 25, Bonus: 1}, 26},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			tr, err := f.ctl.RecordOutcome(context.Background(), 1, tt.award)
			if err != nil {
				t.Fatalf("record: %v", err)
			}
			if tr.Entry.Score != tt.want || tr.Progress.TotalScore != tt.want {
				t.Errorf("score = %d total = %d, want %d", tr.Entry.Score, tr.Progress.TotalScore, tt.want)
			}
		})
	}
}

func TestRejectedAwardsWriteNothing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		award corners.Award
		want  error
	}{
		{"zero outcome", corners.Award{}, corners.ErrInvalidOutcome},
		{"unknown outcome", corners.Award{Outcome: 9}, corners.ErrInvalidOutcome},
		{"negative manual base", corners.Award{Outcome: corners.OutcomeManual, Base: -1}, corners.ErrInvalidScore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.ctl.RecordOutcome(ctx, 2, tt.award); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	entries, err := f.ctl.Entries(ctx, 2)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %+v, want none", entries)
	}
}

func TestUnknownGroup(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.ctl.Load(ctx, 99); !errors.Is(err, corners.ErrNotFound) {
		t.Errorf("load err = %v", err)
	}
	if _, err := f.ctl.RecordOutcome(ctx, 99, corners.Award{Outcome: corners.OutcomeWin}); !errors.Is(err, corners.ErrNotFound) {
		t.Errorf("record err = %v", err)
	}
	if _, err := f.ctl.Route(ctx, 0); !errors.Is(err, corners.ErrNotFound) {
		t.Errorf("route err = %v", err)
	}
}

func TestCompleteStation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.ctl.CompleteStation(ctx, 7, 5, 30); !errors.Is(err, corners.ErrInvalidState) {
		t.Errorf("wrong station err = %v", err)
	}
	if _, err := f.ctl.CompleteStation(ctx, 7, 4, -1); !errors.Is(err, corners.ErrInvalidScore) {
		t.Errorf("negative score err = %v", err)
	}

	tr, err := f.ctl.CompleteStation(ctx, 7, 4, 23)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if tr.Entry.OutcomeType != corners.OutcomeManual || tr.Entry.Score != 23 {
		t.Errorf("entry = %+v", tr.Entry)
	}
	tr, err = f.ctl.CompleteStation(ctx, 7, 5, 40)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if tr.Entry.OutcomeType != corners.OutcomeWin {
		t.Errorf("raw 40 classified as %s", tr.Entry.OutcomeType)
	}
	assertProgress(t, tr.Progress, 2, []int{4, 5}, 63)
}

func TestSubmitScoreChoosesOperation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.ctl.SubmitScore(ctx, 7, 4, corners.Award{Outcome: corners.OutcomeWin})
	if err != nil {
		t.Fatalf("submit current: %v", err)
	}
	if res.Forward == nil || res.Correction != nil {
		t.Fatalf("current station result = %+v", res)
	}

	res, err = f.ctl.SubmitScore(ctx, 7, 4, corners.Award{Outcome: corners.OutcomeLose})
	if err != nil {
		t.Fatalf("submit completed: %v", err)
	}
	if res.Correction == nil || res.Correction.Delta != -30 {
		t.Fatalf("completed station result = %+v", res)
	}

	if _, err := f.ctl.SubmitScore(ctx, 7, 8, corners.Award{Outcome: corners.OutcomeWin}); !errors.Is(err, corners.ErrInvalidState) {
		t.Errorf("upcoming station err = %v", err)
	}
	if _, err := f.ctl.SubmitScore(ctx, 7, 99, corners.Award{Outcome: corners.OutcomeWin}); !errors.Is(err, corners.ErrNotFound) {
		t.Errorf("station outside rotation err = %v", err)
	}
	assertConsistent(t, f.ctl, 7)
}

func TestConcurrentRecordsStayConsistent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, complete int
	for range 15 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ctl.RecordOutcome(ctx, 7, corners.Award{Outcome: corners.OutcomeWin})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, corners.ErrAlreadyComplete):
				complete++
			default:
				t.Errorf("record: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 10 || complete != 5 {
		t.Errorf("ok = %d, complete = %d, want 10 and 5", ok, complete)
	}
	p, err := f.ctl.Load(ctx, 7)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertProgress(t, p, 10, []int{4, 5, 1, 2, 3, 9, 10, 6, 7, 8}, 400)
	assertConsistent(t, f.ctl, 7)
}

func TestSnapshotFallsBackToCache(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.ctl.RecordOutcome(ctx, 7, corners.Award{Outcome: corners.OutcomeWin}); err != nil {
		t.Fatalf("record: %v", err)
	}
	f.db.Close()

	view, err := f.ctl.Snapshot(ctx, 7)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !view.Stale || view.StoredAt == nil {
		t.Errorf("view not flagged stale: %+v", view)
	}
	assertProgress(t, view.Progress, 1, []int{4}, 40)

	view, err = f.ctl.Snapshot(ctx, 3)
	if err != nil {
		t.Fatalf("snapshot uncached: %v", err)
	}
	if !view.Stale || view.StoredAt != nil {
		t.Errorf("placeholder view = %+v", view)
	}
	assertProgress(t, view.Progress, 0, []int{}, 0)

	_, err = f.ctl.RecordOutcome(ctx, 7, corners.Award{Outcome: corners.OutcomeWin})
	if !errors.Is(err, corners.ErrRemote) {
		t.Errorf("write on closed store err = %v, want ErrRemote", err)
	}
}

func TestOverwriteProgress(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		index     int
		completed []int
	}{
		{"index past end", 11, []int{}},
		{"negative index", -1, []int{}},
		{"count mismatch", 2, []int{4}},
		{"not a prefix", 2, []int{4, 1}},
		{"duplicate", 2, []int{4, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ctl.OverwriteProgress(ctx, 7, tt.index, tt.completed, 0)
			if !errors.Is(err, corners.ErrInvalidState) {
				t.Errorf("err = %v, want ErrInvalidState", err)
			}
		})
	}

	p, err := f.ctl.OverwriteProgress(ctx, 7, 2, []int{5, 4}, 70)
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	assertProgress(t, p, 2, []int{5, 4}, 70)

	board, err := f.ctl.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if board[0].GroupID != 7 || board[0].Score != 70 || board[0].State != corners.StateInProgress {
		t.Errorf("leader = %+v", board[0])
	}
}

func TestAuditAndReconcile(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.ctl.RecordOutcome(ctx, 7, corners.Award{Outcome: corners.OutcomeWin, Bonus: 5}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := f.ctl.ResyncTotal(ctx, 7, 100); err != nil {
		t.Fatalf("resync: %v", err)
	}

	a, err := f.ctl.Audit(ctx, 7)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if a.Consistent || a.ProgressTotal != 100 || a.GroupScore != 100 || a.LedgerSum != 45 {
		t.Errorf("audit after resync = %+v", a)
	}

	p, err := f.ctl.Reconcile(ctx, 7)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	assertProgress(t, p, 1, []int{4}, 45)
	assertConsistent(t, f.ctl, 7)
}

func TestResyncWithoutProgress(t *testing.T) {
	f := setup(t)
	if _, err := f.ctl.ResyncTotal(context.Background(), 5, 10); !errors.Is(err, corners.ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
}

func TestRoute(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	r, err := f.ctl.Route(ctx, 7)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if r.State != corners.StateNotStarted || len(r.Stops) != 10 || r.Stops[0].Status != tracker.StopCurrent {
		t.Errorf("fresh route = %+v", r)
	}

	for range 2 {
		if _, err := f.ctl.RecordOutcome(ctx, 7, corners.Award{Outcome: corners.OutcomeDraw}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	r, err = f.ctl.Route(ctx, 7)
	if err != nil {
		t.Fatalf("route: %v", err)
	}

	want := []tracker.StopStatus{tracker.StopDone, tracker.StopDone, tracker.StopCurrent, tracker.StopUpcoming}
	for i, s := range want {
		if r.Stops[i].Status != s {
			t.Errorf("stop %d status = %s, want %s", i, r.Stops[i].Status, s)
		}
	}
	if r.Stops[1].Station.ID != 5 || r.Stops[1].Entry == nil || r.Stops[1].Entry.Score != 30 {
		t.Errorf("stop 1 = %+v", r.Stops[1])
	}
	if r.Stops[2].Entry != nil {
		t.Errorf("current stop has entry")
	}
	if r.TotalScore != 60 || r.State != corners.StateInProgress {
		t.Errorf("route totals = %d %s", r.TotalScore, r.State)
	}
}

func TestLeaderboardSharesRankOnTies(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, g := range []int{3, 5} {
		if _, err := f.ctl.RecordOutcome(ctx, g, corners.Award{Outcome: corners.OutcomeWin}); err != nil {
			t.Fatalf("record %d: %v", g, err)
		}
	}
	board, err := f.ctl.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 20 {
		t.Fatalf("len = %d, want 20", len(board))
	}
	if board[0].GroupID != 3 || board[1].GroupID != 5 || board[0].Rank != 1 || board[1].Rank != 1 {
		t.Errorf("top = %+v %+v", board[0], board[1])
	}
	if board[2].Rank != 3 || board[2].State != corners.StateNotStarted {
		t.Errorf("third = %+v", board[2])
	}
}
