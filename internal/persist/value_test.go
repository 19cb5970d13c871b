package persist

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bassista/go_persist/internal/codec"
	"github.com/bassista/go_persist/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type textFile struct {
	Data string `json:"data" yaml:"data" toml:"data"`
}

func tempLocation(t *testing.T, name string) repository.Location {
	t.Helper()
	return repository.Location(filepath.Join(t.TempDir(), name))
}

func TestValue_GenericRoundTrip(t *testing.T) {
	ctx := context.Background()
	loc := tempLocation(t, "generic.json")

	persist1 := NewValue("Hello World!", loc, nil, nil)
	require.NoError(t, persist1.Persist(ctx))

	persist2 := NewValue("", loc, nil, nil)
	require.NoError(t, persist2.Load(ctx))
	assert.Equal(t, persist1.Data, persist2.Data)

	persist1.Data = "Bye!"
	require.NoError(t, persist1.Persist(ctx))

	persist3 := NewValue("", loc, nil, nil)
	require.NoError(t, persist3.Load(ctx))
	assert.Equal(t, persist1.Data, persist3.Data)
	assert.NotEqual(t, persist2.Data, persist3.Data)
}

func TestValue_StructRoundTripAcrossFormats(t *testing.T) {
	ctx := context.Background()
	for _, format := range []string{codec.FormatJSON, codec.FormatTOML, codec.FormatYAML} {
		t.Run(format, func(t *testing.T) {
			c, err := codec.ForFormat[textFile](format)
			require.NoError(t, err)
			loc := tempLocation(t, "test."+format)

			v1 := NewValue(textFile{Data: "Hello World!"}, loc, c, nil)
			require.NoError(t, v1.Persist(ctx))

			v2 := NewValue(textFile{}, loc, c, nil)
			require.NoError(t, v2.Load(ctx))
			assert.Equal(t, v1.Data, v2.Data)
			assert.Equal(t, format, v2.Format())
		})
	}
}

func TestValue_OnDiskFormatIsCompactJSON(t *testing.T) {
	loc := tempLocation(t, "compact.json")
	v := NewValue(map[string]int{"a": 1}, loc, nil, nil)
	require.NoError(t, v.Persist(context.Background()))

	raw, err := os.ReadFile(loc.Path())
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(raw))
}

func TestValue_OverwriteNeverMerges(t *testing.T) {
	ctx := context.Background()
	loc := tempLocation(t, "overwrite.json")

	writer := NewValue(map[string]int{"a": 1, "b": 2}, loc, nil, nil)
	require.NoError(t, writer.Persist(ctx))
	writer.Data = map[string]int{"c": 3}
	require.NoError(t, writer.Persist(ctx))

	reader := NewValue(map[string]int{"stale": 9}, loc, nil, nil)
	require.NoError(t, reader.Load(ctx))
	assert.Equal(t, map[string]int{"c": 3}, reader.Data)
}

func TestValue_DivergenceDetection(t *testing.T) {
	ctx := context.Background()
	locA := tempLocation(t, "a.json")
	locB := tempLocation(t, "b.json")

	require.NoError(t, NewValue("same", locA, nil, nil).Persist(ctx))
	require.NoError(t, NewValue("same", locB, nil, nil).Persist(ctx))

	a := NewValue("", locA, nil, nil)
	b := NewValue("", locB, nil, nil)
	require.NoError(t, a.Load(ctx))
	require.NoError(t, b.Load(ctx))
	assert.Equal(t, a.Data, b.Data)

	require.NoError(t, NewValue("different", locB, nil, nil).Persist(ctx))
	require.NoError(t, b.Load(ctx))
	assert.NotEqual(t, a.Data, b.Data)
}

func TestValue_Load_MissingLocation(t *testing.T) {
	v := NewValue("keep me", tempLocation(t, "never-written.json"), nil, nil)

	err := v.Load(context.Background())
	require.Error(t, err)
	assert.True(t, IsIoError(err))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsDecodeError(err))
	assert.Equal(t, "keep me", v.Data)
}

func TestValue_Load_MalformedContent(t *testing.T) {
	loc := tempLocation(t, "broken.json")
	require.NoError(t, os.WriteFile(loc.Path(), []byte("{not json"), 0o644))

	v := NewValue(textFile{Data: "keep me"}, loc, nil, nil)
	err := v.Load(context.Background())
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))
	assert.False(t, IsIoError(err))
	assert.Equal(t, "keep me", v.Data.Data)
}

func TestValue_Persist_EncodeError(t *testing.T) {
	loc := tempLocation(t, "func.json")
	v := NewValue[any](func() {}, loc, nil, nil)

	err := v.Persist(context.Background())
	require.Error(t, err)
	assert.True(t, IsEncodeError(err))

	_, statErr := os.Stat(loc.Path())
	assert.True(t, os.IsNotExist(statErr), "failed encode must not touch the location")
}

func TestValue_Persist_WriteError(t *testing.T) {
	loc := repository.Location(filepath.Join(t.TempDir(), "missing-dir", "state.json"))
	v := NewValue("x", loc, nil, nil)

	err := v.Persist(context.Background())
	require.Error(t, err)
	assert.True(t, IsIoError(err))
	assert.Equal(t, loc, v.Location())
}

func TestValue_CustomStore(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryRepository()

	v := NewValue(42, "answer", nil, store)
	require.NoError(t, v.Persist(ctx))

	raw, err := store.Read(ctx, "answer")
	require.NoError(t, err)
	assert.Equal(t, "42", string(raw))
}
