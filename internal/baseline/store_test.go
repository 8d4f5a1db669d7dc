package baseline

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "baselines.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreSaveLoadRoundtrip(t *testing.T) {
	s := newTestStore(t)
	a := snapshotOf(t, shopUnits())

	require.NoError(t, s.Save("main", a))
	back, err := s.Load("main")
	require.NoError(t, err)

	assert.Equal(t, a.SchemaVersion, back.SchemaVersion)
	require.Len(t, back.Records, len(a.Records))
	assert.Equal(t, a.Records[0].Symbol.ID, back.Records[0].Symbol.ID)
	assert.Equal(t, a.Records[0].Classification.Role, back.Records[0].Classification.Role)
}

func TestStoreSaveUpserts(t *testing.T) {
	s := newTestStore(t)
	a := snapshotOf(t, shopUnits())
	require.NoError(t, s.Save("main", a))

	units := shopUnits()
	units[0].Decls = units[0].Decls[:1]
	smaller := snapshotOf(t, units)
	require.NoError(t, s.Save("main", smaller))

	back, err := s.Load("main")
	require.NoError(t, err)
	assert.Len(t, back.Records, 1, "second save under the same label must replace the first")
}

func TestStoreLoadUnknownLabel(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load("absent")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSchemaMismatch)
}

func TestStoreRejectsEmptyLabel(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.Save("", snapshotOf(t, shopUnits())))
}

func TestStoreSchemaMismatch(t *testing.T) {
	s := newTestStore(t)
	a := snapshotOf(t, shopUnits())
	a.SchemaVersion = SchemaVersion + 1
	require.NoError(t, s.Save("stale", a))

	_, err := s.Load("stale")
	assert.True(t, errors.Is(err, ErrSchemaMismatch), "got %v", err)
}

func TestStoreLabelsAndDelete(t *testing.T) {
	s := newTestStore(t)
	a := snapshotOf(t, shopUnits())
	require.NoError(t, s.Save("release", a))
	require.NoError(t, s.Save("main", a))

	labels, err := s.Labels()
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "release"}, labels)

	require.NoError(t, s.Delete("main"))
	labels, err = s.Labels()
	require.NoError(t, err)
	assert.Equal(t, []string{"release"}, labels)
}
