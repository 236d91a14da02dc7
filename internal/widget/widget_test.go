package widget

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/classdeck/internal/snapshot"
	"github.com/starford/classdeck/internal/sse"
	"github.com/starford/classdeck/internal/storage"
	"github.com/starford/classdeck/internal/timing"
)

var cst = time.FixedZone("CST", 8*3600)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 10, 19, hour, minute, 0, 0, cst)
}

func container(t *testing.T) *storage.FS {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	require.NoError(t, err)
	return fs
}

func writeSnapshot(t *testing.T, fs *storage.FS, doc snapshot.Document, legacy bool) {
	t.Helper()
	data, err := snapshot.Encode(doc, legacy)
	require.NoError(t, err)
	require.NoError(t, fs.Write(snapshot.DefaultFilename, data))
}

func eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

var compilers = snapshot.Entry{Name: "Compilers", Teacher: "Prof. Lin", Location: "B-204", PeriodIndex: 3, PeriodSpan: 2, ColorTag: "#FF8800"}

func TestLoadMissingIsNoData(t *testing.T) {
	res := Load(container(t), snapshot.DefaultFilename)
	assert.Equal(t, StatusNoData, res.Status)
	assert.NotNil(t, res.Entries)
	assert.Empty(t, res.Entries)
	assert.NotEmpty(t, res.Err)
}

func TestLoadCorruptIsNoData(t *testing.T) {
	fs := container(t)
	require.NoError(t, fs.Write(snapshot.DefaultFilename, []byte(`[{"name":`)))
	res := Load(fs, snapshot.DefaultFilename)
	assert.Equal(t, StatusNoData, res.Status)
	assert.Empty(t, res.Entries)
}

func TestLoadEmptyDayIsOK(t *testing.T) {
	fs := container(t)
	require.NoError(t, fs.Write(snapshot.DefaultFilename, []byte("[]")))
	res := Load(fs, snapshot.DefaultFilename)
	assert.Equal(t, StatusOK, res.Status)
	assert.Empty(t, res.Entries)
	assert.True(t, res.Legacy)
	assert.False(t, res.GeneratedAt.IsZero(), "generation time comes from the file mtime")
}

func TestLoadDocument(t *testing.T) {
	fs := container(t)
	writeSnapshot(t, fs, snapshot.Document{
		Date: "2026-10-19", GeneratedAt: at(7, 0), TimingTable: timing.Default.Fingerprint(),
		Entries: []snapshot.Entry{compilers},
	}, false)

	res := Load(fs, snapshot.DefaultFilename)
	require.Equal(t, StatusOK, res.Status)
	assert.Equal(t, []snapshot.Entry{compilers}, res.Entries)
	assert.Equal(t, "2026-10-19", res.Date)
	assert.False(t, res.Legacy)
}

func TestCurrentStateEarlyInClass(t *testing.T) {
	st := CurrentState([]snapshot.Entry{compilers}, at(10, 1), timing.Default)
	require.Len(t, st.Current, 1)
	cur := st.Current[0]
	assert.Equal(t, "Compilers", cur.Name)
	assert.InDelta(t, 1.0/90.0, cur.Progress, 1e-6)
	assert.Equal(t, "1.1", cur.Percent.String())
	assert.Equal(t, "10:00", cur.Start)
	assert.Equal(t, "11:30", cur.End)
}

func TestCurrentStateAfterClass(t *testing.T) {
	st := CurrentState([]snapshot.Entry{compilers}, at(11, 31), timing.Default)
	assert.False(t, st.HasCurrent())
	assert.Nil(t, st.Next)
}

func TestCurrentStateBoundaries(t *testing.T) {
	st := CurrentState([]snapshot.Entry{compilers}, at(10, 0), timing.Default)
	require.Len(t, st.Current, 1)
	assert.Equal(t, 0.0, st.Current[0].Progress)

	st = CurrentState([]snapshot.Entry{compilers}, at(11, 30), timing.Default)
	assert.False(t, st.HasCurrent(), "end is exclusive")
}

func TestCurrentStateOverlapsAndNext(t *testing.T) {
	seminar := snapshot.Entry{Name: "Seminar", PeriodIndex: 4, PeriodSpan: 1}
	networks := snapshot.Entry{Name: "Networks", PeriodIndex: 5, PeriodSpan: 1}
	lab := snapshot.Entry{Name: "Lab", PeriodIndex: 7, PeriodSpan: 2}

	st := CurrentState([]snapshot.Entry{compilers, seminar, lab, networks}, at(11, 0), timing.Default)
	require.Len(t, st.Current, 2)
	assert.Equal(t, "Compilers", st.Current[0].Name)
	assert.Equal(t, "Seminar", st.Current[1].Name)
	require.NotNil(t, st.Next)
	assert.Equal(t, "Networks", st.Next.Name)
	assert.Len(t, st.Slots, 4)
}

func TestCurrentStateUnknownPeriod(t *testing.T) {
	ghost := snapshot.Entry{Name: "Ghost", PeriodIndex: 42, PeriodSpan: 1}
	zero := snapshot.Entry{Name: "Zero span", PeriodIndex: 3, PeriodSpan: 0}

	st := CurrentState([]snapshot.Entry{ghost, zero, compilers}, at(10, 30), timing.Default)
	assert.Len(t, st.Unscheduled, 2)
	require.Len(t, st.Current, 1)
	assert.Equal(t, "Compilers", st.Current[0].Name)
}

func TestCurrentStateEmpty(t *testing.T) {
	st := CurrentState(nil, at(10, 30), timing.Default)
	assert.False(t, st.HasCurrent())
	assert.NotNil(t, st.Current)
	assert.NotNil(t, st.Unscheduled)
}

func newTestRefresher(t *testing.T, fs *storage.FS, opts ...RefresherOption) *Refresher {
	t.Helper()
	opts = append([]RefresherOption{WithClock(func() time.Time { return at(10, 1) })}, opts...)
	r, err := NewRefresher(fs, snapshot.DefaultFilename, timing.Default, timing.NewFormatter(cst),
		"", discardLogger(), opts...)
	require.NoError(t, err)
	return r
}

func TestRefresherOnceDetectsTimingMismatch(t *testing.T) {
	fs := container(t)
	writeSnapshot(t, fs, snapshot.Document{Date: "2026-10-19", TimingTable: "stale", Entries: []snapshot.Entry{compilers}}, false)

	v := newTestRefresher(t, fs).Once()
	assert.True(t, v.TimingMismatch)
	assert.True(t, v.State.HasCurrent(), "state is still computed")
}

func TestRefresherPicksUpFileChanges(t *testing.T) {
	fs := container(t)
	broker := sse.NewBroker(time.Second)
	defer broker.Close()
	events := broker.Subscribe()
	defer broker.Unsubscribe(events)

	r := newTestRefresher(t, fs, WithBroker(broker))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	eventually(t, 2*time.Second, func() bool { return r.Refreshes() >= 1 })
	assert.Equal(t, StatusNoData, r.View().Status)

	writeSnapshot(t, fs, snapshot.Document{Date: "2026-10-19", TimingTable: timing.Default.Fingerprint(),
		Entries: []snapshot.Entry{compilers}}, false)
	eventually(t, 3*time.Second, func() bool { return r.View().Status == StatusOK })
	assert.True(t, r.View().State.HasCurrent())

	select {
	case msg := <-events:
		assert.Contains(t, string(msg), "event: state.updated")
	case <-time.After(time.Second):
		t.Fatal("no state.updated event")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("refresher did not stop")
	}
}

func TestRefresherWithoutContainerStillRuns(t *testing.T) {
	fs, err := storage.NewFS(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	r := newTestRefresher(t, fs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	eventually(t, 2*time.Second, func() bool { return r.Refreshes() >= 1 })
	r.Refresh()
	eventually(t, 2*time.Second, func() bool { return r.Refreshes() >= 2 })
	assert.Equal(t, StatusNoData, r.View().Status)
}

func TestNewRefresherRejectsBadSpec(t *testing.T) {
	_, err := NewRefresher(container(t), snapshot.DefaultFilename, timing.Default, timing.NewFormatter(cst),
		"whenever", discardLogger())
	assert.Error(t, err)
}

func TestHTTPStateAndRefresh(t *testing.T) {
	fs := container(t)
	writeSnapshot(t, fs, snapshot.Document{Date: "2026-10-19", Entries: []snapshot.Entry{compilers}}, true)
	r := newTestRefresher(t, fs)
	srv := httptest.NewServer(NewRouter(r, nil))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var v struct {
		Status Status `json:"status"`
		State  struct {
			Current []struct {
				Name    string `json:"name"`
				Percent string `json:"percent"`
			} `json:"current"`
		} `json:"state"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	assert.Equal(t, StatusOK, v.Status)
	require.Len(t, v.State.Current, 1)
	assert.Equal(t, "Compilers", v.State.Current[0].Name)
	assert.Equal(t, "1.1", v.State.Current[0].Percent)

	get, err := http.Get(srv.URL + "/state")
	require.NoError(t, err)
	get.Body.Close()
	assert.Equal(t, http.StatusOK, get.StatusCode)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/state", nil)
	req.Header.Set("Origin", "http://companion.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	pre, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	pre.Body.Close()
	assert.Equal(t, "*", pre.Header.Get("Access-Control-Allow-Origin"))
}

func TestRefresherWatchesContainerCreatedLater(t *testing.T) {
	fs, err := storage.NewFS(filepath.Join(t.TempDir(), "late"))
	require.NoError(t, err)
	r := newTestRefresher(t, fs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()
	eventually(t, 2*time.Second, func() bool { return r.Refreshes() >= 1 })

	require.NoError(t, fs.Ensure())
	// A scheduled tick arrives after the container appears.
	r.Refresh()
	eventually(t, 2*time.Second, func() bool { return r.Refreshes() >= 2 })

	// The next export is seen through the watch, not the one-minute schedule.
	writeSnapshot(t, fs, snapshot.Document{Date: "2026-10-19", TimingTable: timing.Default.Fingerprint(),
		Entries: []snapshot.Entry{compilers}}, false)
	eventually(t, 3*time.Second, func() bool { return r.View().Status == StatusOK })
	assert.True(t, r.View().State.HasCurrent())
}

func TestRefresherFlagsStaleSnapshot(t *testing.T) {
	fs := container(t)
	writeSnapshot(t, fs, snapshot.Document{Date: "2026-10-18", Entries: []snapshot.Entry{compilers}}, false)
	v := newTestRefresher(t, fs).Once()
	assert.True(t, v.Stale)
	assert.Equal(t, StatusOK, v.Status)

	writeSnapshot(t, fs, snapshot.Document{Date: "2026-10-19", Entries: []snapshot.Entry{compilers}}, false)
	assert.False(t, newTestRefresher(t, fs).Once().Stale)
}

func TestStaleAtUsesModTimeForLegacy(t *testing.T) {
	f := timing.NewFormatter(cst)
	legacy := LoadResult{Status: StatusOK, GeneratedAt: at(23, 50).Add(-24 * time.Hour), Legacy: true}
	assert.True(t, legacy.StaleAt(f, at(8, 0)))
	legacy.GeneratedAt = at(7, 0)
	assert.False(t, legacy.StaleAt(f, at(8, 0)))
	assert.False(t, LoadResult{Status: StatusNoData}.StaleAt(f, at(8, 0)), "no snapshot is not stale")
}
