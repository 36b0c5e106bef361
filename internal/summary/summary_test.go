package summary

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/activity_monitor/internal/category"
	"github.com/relabs-tech/activity_monitor/internal/logstore"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "summary.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveDayAndHistory(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	d1 := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.Local)
	d2 := d1.AddDate(0, 0, 1)

	require.NoError(t, s.SaveDay(ctx, category.Activity.Type, d1, []logstore.Total{
		{Class: category.Walking, Duration: 90 * time.Second},
		{Class: category.Running, Duration: 30 * time.Second},
	}))
	require.NoError(t, s.SaveDay(ctx, category.Activity.Type, d2, []logstore.Total{
		{Class: category.LyingBack, Duration: time.Hour},
	}))
	require.NoError(t, s.SaveDay(ctx, category.Respiratory.Type, d1, []logstore.Total{
		{Class: category.Coughing, Duration: time.Minute},
	}))

	all, err := s.History(ctx, category.Activity.Type, d1)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, DayTotal{Day: "2024-03-01", Category: "physical_activity", Code: 3, Label: "Walking", Duration: 90 * time.Second}, all[0])
	assert.Equal(t, 4, all[1].Code)
	assert.Equal(t, "2024-03-02", all[2].Day)

	recent, err := s.History(ctx, category.Activity.Type, d2)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, time.Hour, recent[0].Duration)
}

func TestSaveDay_Replaces(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	day := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.Local)

	require.NoError(t, s.SaveDay(ctx, "respiratory", day, []logstore.Total{
		{Class: category.Coughing, Duration: time.Minute},
		{Class: category.BreathingNormal, Duration: time.Hour},
	}))
	require.NoError(t, s.SaveDay(ctx, "respiratory", day, []logstore.Total{
		{Class: category.BreathingNormal, Duration: 2 * time.Hour},
	}))

	got, err := s.History(ctx, "respiratory", day)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2*time.Hour, got[0].Duration)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveDay(context.Background(), "physical_activity", time.Now(), []logstore.Total{
		{Class: category.Misc, Duration: time.Second},
	}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.History(context.Background(), "physical_activity", time.Now().AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
