package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, path string) *Store {
	s, err := NewStore(path, logrus.New())
	require.NoError(t, err)
	return s
}

func TestRegisterDefaults(t *testing.T) {
	s := newTestStore(t, "")

	st, err := s.Register("BCTL", "Start", "Start threshold", 0, 99, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Value())

	_, err = s.Register("BCTL", "Start", "Start threshold", 0, 99, 0)
	assert.Error(t, err, "duplicate id")
	_, err = s.Register("BCT", "Bad", "Bad id", 0, 99, 0)
	assert.Error(t, err, "short id")
	_, err = s.Register("BADD", "Bad", "Bad default", 1, 100, 0)
	assert.Error(t, err, "default out of range")
	_, err = s.Register("BADR", "Bad", "Bad range", 10, 1, 5)
	assert.Error(t, err, "min over max")

	found, ok := s.Lookup("BCTL")
	require.True(t, ok)
	assert.Same(t, st, found)
	_, ok = s.Lookup("NONE")
	assert.False(t, ok)
	assert.Len(t, s.Settings(), 1)
}

func TestSetValidation(t *testing.T) {
	s := newTestStore(t, "")
	st, err := s.Register("BCTH", "Stop", "Stop threshold", 1, 100, 100)
	require.NoError(t, err)

	require.NoError(t, st.Set(80))
	assert.Equal(t, 80, st.Value())

	err = st.Set(0)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "BCTH", verr.ID)
	assert.Equal(t, 0, verr.Value)
	assert.Equal(t, 80, st.Value())

	assert.Error(t, st.Set(101))
	assert.Equal(t, 80, st.Value())

	require.NoError(t, st.Set(1))
	require.NoError(t, st.Set(100))
	assert.Equal(t, 100, st.Value())
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charge-thresholds.yaml")

	s := newTestStore(t, path)
	start, err := s.Register("BCTL", "Start", "Start threshold", 0, 99, 0)
	require.NoError(t, err)
	stop, err := s.Register("BCTH", "Stop", "Stop threshold", 1, 100, 100)
	require.NoError(t, err)
	require.NoError(t, start.Set(40))
	require.NoError(t, stop.Set(80))
	assert.Error(t, stop.Set(0))

	reloaded := newTestStore(t, path)
	start, err = reloaded.Register("BCTL", "Start", "Start threshold", 0, 99, 0)
	require.NoError(t, err)
	stop, err = reloaded.Register("BCTH", "Stop", "Stop threshold", 1, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, 40, start.Value())
	assert.Equal(t, 80, stop.Value())
}

func TestStoredValueOutOfRangeIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charge-thresholds.yaml")

	s := newTestStore(t, path)
	wide, err := s.Register("BCTL", "Start", "Start threshold", 0, 200, 0)
	require.NoError(t, err)
	require.NoError(t, wide.Set(150))

	reloaded := newTestStore(t, path)
	start, err := reloaded.Register("BCTL", "Start", "Start threshold", 0, 99, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, start.Value())
}

func TestFailedWriteNotPersistedLater(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charge-thresholds.yaml")

	s := newTestStore(t, path)
	start, err := s.Register("BCTL", "Start", "Start threshold", 0, 99, 0)
	require.NoError(t, err)
	stop, err := s.Register("BCTH", "Stop", "Stop threshold", 1, 100, 100)
	require.NoError(t, err)

	// A directory in place of the file makes the write fail.
	require.NoError(t, os.Mkdir(path, 0755))
	assert.Error(t, start.Set(42))
	assert.Equal(t, 0, start.Value())
	require.NoError(t, os.Remove(path))

	require.NoError(t, stop.Set(80))

	reloaded := newTestStore(t, path)
	start, err = reloaded.Register("BCTL", "Start", "Start threshold", 0, 99, 0)
	require.NoError(t, err)
	stop, err = reloaded.Register("BCTH", "Stop", "Stop threshold", 1, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, start.Value())
	assert.Equal(t, 80, stop.Value())
}

func TestFailedWriteKeepsPreviousValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charge-thresholds.yaml")

	s := newTestStore(t, path)
	start, err := s.Register("BCTL", "Start", "Start threshold", 0, 99, 0)
	require.NoError(t, err)
	stop, err := s.Register("BCTH", "Stop", "Stop threshold", 1, 100, 100)
	require.NoError(t, err)
	require.NoError(t, start.Set(30))

	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0755))
	assert.Error(t, start.Set(42))
	assert.Equal(t, 30, start.Value())
	require.NoError(t, os.Remove(path))

	require.NoError(t, stop.Set(90))

	reloaded := newTestStore(t, path)
	start, err = reloaded.Register("BCTL", "Start", "Start threshold", 0, 99, 0)
	require.NoError(t, err)
	assert.Equal(t, 30, start.Value())
}
