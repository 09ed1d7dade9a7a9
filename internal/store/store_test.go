package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := Job{
		Images:    []string{"a.jpg", "b.jpg"},
		Mode:      "cylinder",
		Width:     640,
		Height:    200,
		Success:   true,
		Error:     "Warning: Failed to write output file: disk full",
		Duration:  1500 * time.Millisecond,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	saved, err := s.Record(ctx, want)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, saved.ID)
	want.ID = saved.ID

	got, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("job mismatch (-want +got):\n%s", diff)
	}
}

func TestGetUnknown(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		_, err := s.Record(ctx, Job{Mode: "planar", Width: i, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
	}

	jobs, err := s.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, []int{4, 3, 2}, []int{jobs[0].Width, jobs[1].Width, jobs[2].Width})
	assert.Equal(t, []string{}, jobs[0].Images)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestListEmpty(t *testing.T) {
	jobs, err := openTestStore(t).List(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, jobs)
	assert.Empty(t, jobs)
}

func TestReopenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	s, err := Open(path)
	require.NoError(t, err)
	saved, err := s.Record(context.Background(), Job{Mode: "camera", Images: []string{"x.png"}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"x.png"}, got.Images)
}

func TestDuplicateID(t *testing.T) {
	s := openTestStore(t)
	job, err := s.Record(context.Background(), Job{Mode: "planar"})
	require.NoError(t, err)
	_, err = s.Record(context.Background(), job)
	assert.Error(t, err)
}
