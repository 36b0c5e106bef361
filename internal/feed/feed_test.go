package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relabs-tech/activity_monitor/internal/broker/brokertest"
	"github.com/relabs-tech/activity_monitor/internal/category"
	"github.com/relabs-tech/activity_monitor/internal/features"
	"github.com/relabs-tech/activity_monitor/internal/imu"
	"github.com/relabs-tech/activity_monitor/internal/logstore"
	"github.com/relabs-tech/activity_monitor/internal/pipeline"
)

type fakeSource struct {
	mu        sync.Mutex
	labels    pipeline.Labels
	subs      []chan pipeline.Labels
	recordErr error
	toggles   []bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{labels: pipeline.Labels{
		Activity:    category.Walking,
		Respiratory: category.Respiratory.Undefined(),
	}}
}

func (f *fakeSource) Current() pipeline.Labels {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.labels
}

func (f *fakeSource) Subscribe() (<-chan pipeline.Labels, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan pipeline.Labels, 4)
	f.subs = append(f.subs, ch)
	return ch, func() {}
}

func (f *fakeSource) WindowStats() features.Summary {
	return features.Summarize([][]float64{{3, 0, 4}, {3, 0, 4}})
}

func (f *fakeSource) LastSample(source int) int64 {
	if source == 0 {
		return 1700000000123
	}
	return 0
}

func (f *fakeSource) SetRecording(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.toggles = append(f.toggles, on)
	f.labels.Recording = on
	return nil
}

func (f *fakeSource) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeSource) push(l pipeline.Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.labels = l
	for _, ch := range f.subs {
		ch <- l
	}
}

func (f *fakeSource) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		close(ch)
	}
	f.subs = nil
}

func TestCache_PublishGetExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, "ward-3", 10*time.Second)
	ctx := context.Background()

	assert.Equal(t, "activity:ward-3:realtime", cache.Key())

	_, err := cache.Get(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)

	in := pipeline.Labels{Activity: category.Running, Respiratory: category.Respiratory.Undefined(), Recording: true, Session: "s1"}
	require.NoError(t, cache.Publish(ctx, in))

	out, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, category.Running, out.Activity)
	assert.Equal(t, "s1", out.Session)
	assert.True(t, out.Recording)

	mr.FastForward(11 * time.Second)
	_, err = cache.Get(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCache_CorruptValue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, "x", time.Minute)
	require.NoError(t, mr.Set(cache.Key(), "not json"))

	_, err := cache.Get(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestMQTTPublisher_OnlyOnChange(t *testing.T) {
	client := brokertest.NewClient()
	pub := NewMQTTPublisher(client, "activity/labels", 1)
	ctx := context.Background()

	l := pipeline.Labels{Activity: category.Walking, Respiratory: category.Respiratory.Undefined()}
	require.NoError(t, pub.Publish(ctx, l))
	l.At = time.Now()
	require.NoError(t, pub.Publish(ctx, l))
	l.Activity = category.Running
	require.NoError(t, pub.Publish(ctx, l))

	msgs := client.Published()
	require.Len(t, msgs, 2)
	assert.Equal(t, "activity/labels", msgs[0].Topic)
	assert.True(t, msgs[0].Retained)
	assert.Equal(t, byte(1), msgs[0].QoS)

	var got pipeline.Labels
	require.NoError(t, json.Unmarshal(msgs[1].Payload, &got))
	assert.Equal(t, category.Running, got.Activity)
}

func TestMQTTPublisher_Error(t *testing.T) {
	client := brokertest.NewClient()
	client.PublishErr = errors.New("broker gone")
	pub := NewMQTTPublisher(client, "t", 0)
	assert.Error(t, pub.Publish(context.Background(), pipeline.Labels{}))
}

type recordingSink struct {
	mu  sync.Mutex
	got []pipeline.Labels
	err error
}

func (s *recordingSink) Publish(_ context.Context, l pipeline.Labels) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, l)
	return s.err
}

func TestForward(t *testing.T) {
	src := newFakeSource()
	ok := &recordingSink{}
	failing := &recordingSink{err: errors.New("down")}

	done := make(chan struct{})
	go func() {
		Forward(context.Background(), src, zap.NewNop(), failing, ok)
		close(done)
	}()
	require.Eventually(t, func() bool { return src.subscribers() == 1 }, time.Second, time.Millisecond)

	src.push(pipeline.Labels{Activity: category.LyingBack})
	src.push(pipeline.Labels{Activity: category.LyingLeft})
	src.closeAll()
	<-done

	require.Len(t, ok.got, 2)
	assert.Equal(t, category.LyingLeft, ok.got[1].Activity)
	assert.Len(t, failing.got, 2)
}

func newTestServer(t *testing.T, src *fakeSource, rec *logstore.Recorder) *Server {
	t.Helper()
	s := NewServer(src, rec, zap.NewNop())
	s.now = func() time.Time { return time.Date(2024, time.March, 1, 12, 0, 0, 0, time.Local) }
	return s
}

func TestServer_Labels(t *testing.T) {
	s := newTestServer(t, newFakeSource(), nil)

	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/labels", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var l pipeline.Labels
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &l))
	assert.Equal(t, category.Walking, l.Activity)

	rr = httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/labels", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestServer_WindowStats(t *testing.T) {
	s := newTestServer(t, newFakeSource(), nil)
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/window/stats", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		features.Summary
		LastSample map[string]int64 `json:"last_sample"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body.Columns, 3)
	assert.InDelta(t, 5.0, body.Magnitude.Mean, 1e-9)
	assert.Equal(t, map[string]int64{
		imu.SourceChest:    1700000000123,
		imu.SourceWearable: 0,
	}, body.LastSample)
}

func TestServer_Logbook(t *testing.T) {
	dir := t.TempDir()
	rec := logstore.NewRecorder(dir)
	day := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.Local)
	require.NoError(t, os.WriteFile(rec.Activity.Path(day),
		[]byte(logstore.Header+"\n08:00:00,3\n08:00:10,4\n08:00:20,-1\n"), 0o644))

	s := newTestServer(t, newFakeSource(), rec)

	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/logbook", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var rep logstore.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	assert.Equal(t, "2024-03-01", rep.Day)
	assert.Equal(t, category.Activity.Type, rep.Category)
	assert.Len(t, rep.Entries, 3)
	require.Len(t, rep.Top, 2)
	assert.Equal(t, 10*time.Second, rep.Top[0].Duration)

	rr = httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/logbook?day=2024-03-01&category=respiratory", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	assert.Equal(t, "respiratory", rep.Category)
	assert.Empty(t, rep.Entries)

	rr = httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/logbook?day=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/logbook?category=sleep", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	newTestServer(t, newFakeSource(), nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/logbook", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestServer_Recording(t *testing.T) {
	src := newFakeSource()
	s := newTestServer(t, src, nil)

	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/recording?on=true", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []bool{true}, src.toggles)

	rr = httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/recording?on=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	src.recordErr = pipeline.ErrNoRecorder
	rr = httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/recording?on=true", nil))
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/recording?on=true", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHub_StreamsLabelsAndActions(t *testing.T) {
	src := newFakeSource()
	s := newTestServer(t, src, nil)
	ts := httptest.NewServer(s)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/labels"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var resp WSResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "labels", resp.Type)
	require.NotNil(t, resp.Labels)
	assert.Equal(t, category.Walking, resp.Labels.Activity)

	require.Eventually(t, func() bool { return src.subscribers() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, s.Hub().Clients())

	src.push(pipeline.Labels{Activity: category.LyingStomach})
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, category.LyingStomach, resp.Labels.Activity)

	require.NoError(t, conn.WriteJSON(WSMessage{Action: "start"}))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "labels", resp.Type)
	assert.True(t, resp.Labels.Recording)

	require.NoError(t, conn.WriteJSON(WSMessage{Action: "dance"}))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "error", resp.Type)

	src.closeAll()
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	require.Eventually(t, func() bool { return s.Hub().Clients() == 0 }, time.Second, time.Millisecond)
}
