package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-leaderboard/internal/config"
	"github.com/bobmcallan/vire-leaderboard/internal/market"
	"github.com/bobmcallan/vire-leaderboard/internal/models"
)

func testHours(t *testing.T) *market.Hours {
	t.Helper()
	h, err := market.NewHours(config.MarketConfig{Timezone: "America/New_York", Open: "09:30", Close: "17:00"})
	require.NoError(t, err)
	return h
}

func testSnapshots() models.SnapshotMap {
	return models.SnapshotMap{
		"Jane Doe": {
			Name: "Jane Doe", Value: 12345.67, URL: "https://example.com/1",
			Holdings: []models.Holding{{Ticker: "AAPL", LastPrice: "$190.12", PercentChange: "1.23%"}},
		},
		"Bob": {Name: "Bob", Value: 100000, URL: "https://example.com/2"},
	}
}

func TestFileName(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)
	assert.Equal(t, "leaderboard-2026-03-02-09_05.json", FileName(at))

	parsed, err := ParseFileName("leaderboard-2026-03-02-09_05.json", time.UTC)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(at))

	for _, bad := range []string{LatestName, "notes.txt", "leaderboard-yesterday.json"} {
		_, err := ParseFileName(bad, time.UTC)
		assert.Error(t, err, bad)
	}
}

func TestFileSink_WritesBucketedAndLatest(t *testing.T) {
	dir := t.TempDir()
	hours := testHours(t)
	sink := NewFileSink(dir, hours)

	// 15:00 UTC on a Monday is 10:00 in New York.
	at := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	require.NoError(t, sink.Write(context.Background(), at, testSnapshots()))

	timestamped := filepath.Join(dir, market.BucketInTime, "leaderboard-2026-03-02-10_00.json")
	latest := filepath.Join(dir, LatestName)

	a, err := os.ReadFile(timestamped)
	require.NoError(t, err)
	b, err := os.ReadFile(latest)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.JSONEq(t,
		`{"Jane Doe":[12345.67,"https://example.com/1",[["AAPL","$190.12","1.23%"]]],"Bob":[100000,"https://example.com/2",[]]}`,
		string(a))
}

func TestFileSink_OutOfHoursBucket(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir, testHours(t))

	// Saturday.
	at := time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)
	require.NoError(t, sink.Write(context.Background(), at, models.SnapshotMap{}))

	_, err := os.Stat(filepath.Join(dir, market.BucketOutOfTime, "leaderboard-2026-03-07-10_00.json"))
	assert.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, LatestName))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestFileSink_LatestOverwritten(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir, testHours(t))
	first := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	require.NoError(t, sink.Write(context.Background(), first, testSnapshots()))
	require.NoError(t, sink.Write(context.Background(), first.Add(15*time.Minute), models.SnapshotMap{
		"Solo": {Name: "Solo", Value: 1, URL: "u"},
	}))

	latest, err := NewReader(dir, nil).Latest()
	require.NoError(t, err)
	assert.Len(t, latest, 1)
	assert.Contains(t, latest, "Solo")
}

func TestReader_LatestMissing(t *testing.T) {
	_, err := NewReader(t.TempDir(), nil).Latest()
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestReader_History(t *testing.T) {
	dir := t.TempDir()
	hours := testHours(t)
	sink := NewFileSink(dir, hours)

	times := []time.Time{
		time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC), // saturday, out_of_time
		time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 16, 30, 0, 0, time.UTC),
	}
	for _, at := range times {
		require.NoError(t, sink.Write(context.Background(), at, testSnapshots()))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, market.BucketInTime, "README"), []byte("x"), 0644))

	entries, err := NewReader(dir, hours.Location).History()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.True(t, entries[0].At.Equal(times[1]))
	assert.True(t, entries[2].At.Equal(times[0]))
	assert.Equal(t, market.BucketOutOfTime, entries[2].Bucket)

	m, err := Load(entries[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", m["Jane Doe"].Name)

	inTime := InTime(entries)
	require.Len(t, inTime, 2)
	assert.True(t, inTime[0].At.Before(inTime[1].At))
	assert.Equal(t, market.BucketInTime, inTime[1].Bucket)
}

func TestReader_Open(t *testing.T) {
	dir := t.TempDir()
	hours := testHours(t)
	sink := NewFileSink(dir, hours)

	// saturday, so the file lands in out_of_time
	at := time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)
	require.NoError(t, sink.Write(context.Background(), at, testSnapshots()))

	r := NewReader(dir, hours.Location)
	m, err := r.Open(FileName(hours.Local(at)))
	require.NoError(t, err)
	assert.Len(t, m, 2)

	_, err = r.Open(FileName(hours.Local(at.Add(time.Hour))))
	assert.ErrorIs(t, err, ErrNoSnapshot)

	_, err = r.Open("../" + LatestName)
	assert.Error(t, err)
	_, err = r.Open(LatestName)
	assert.Error(t, err)
}

func TestReader_HistoryEmptyDir(t *testing.T) {
	entries, err := NewReader(t.TempDir(), nil).History()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// fakeS3 records PutObject calls.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[*in.Bucket+"/"+*in.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3Sink_Write(t *testing.T) {
	client := &fakeS3{}
	sink := newS3Sink(client, "boards", "leaderboards", testHours(t))
	at := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	require.NoError(t, sink.Write(context.Background(), at, testSnapshots()))

	require.Len(t, client.objects, 2)
	ts := client.objects["boards/leaderboards/in_time/leaderboard-2026-03-02-10_00.json"]
	latest := client.objects["boards/leaderboards/leaderboard-latest.json"]
	require.NotEmpty(t, ts)
	assert.True(t, bytes.Equal(ts, latest))
}

func TestS3Sink_WriteError(t *testing.T) {
	sink := newS3Sink(&fakeS3{err: errors.New("access denied")}, "boards", "", testHours(t))
	err := sink.Write(context.Background(), time.Now(), testSnapshots())
	assert.True(t, models.IsKind(err, models.KindIOFailure))
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "https://minio:9000", normaliseEndpoint("minio:9000"))
	assert.Equal(t, "http://localhost:9000", normaliseEndpoint("http://localhost:9000"))
}

// recordingSink is an in-memory SnapshotSink.
type recordingSink struct {
	name  string
	err   error
	calls int
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Write(_ context.Context, _ time.Time, _ models.SnapshotMap) error {
	s.calls++
	return s.err
}

func TestWriter_MirrorFailureIsNotFatal(t *testing.T) {
	primary := &recordingSink{name: "primary"}
	mirror := &recordingSink{name: "mirror", err: errors.New("unreachable")}
	w := NewWriter(primary, nil, mirror)

	require.NoError(t, w.Write(context.Background(), time.Now(), testSnapshots()))
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, mirror.calls)
}

func TestWriter_PrimaryFailureSkipsMirrors(t *testing.T) {
	primary := &recordingSink{name: "primary", err: errors.New("disk full")}
	mirror := &recordingSink{name: "mirror"}
	w := NewWriter(primary, nil, mirror)

	assert.Error(t, w.Write(context.Background(), time.Now(), testSnapshots()))
	assert.Equal(t, 0, mirror.calls)
}
