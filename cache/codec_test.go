package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grailbio/osmreduce/intern"
	"github.com/grailbio/osmreduce/model"
)

func sampleEnvelope() *Envelope {
	sw := intern.NewWriter()
	tw := intern.NewTagSetWriter()
	a, b := sw.GetOrIntern("amenity"), sw.GetOrIntern("cafe")
	tagSetID := tw.Intern([]model.TagPair{model.PackTagPair(a, b)})

	return &Envelope{
		Elements: []model.Element{
			{ID: 1, Lat1: 48.8, Lon1: 2.3, Lat2: 48.8, Lon2: 2.3, TagSetID: tagSetID},
		},
		TagSets:     tw.Freeze(),
		Strings:     sw.Freeze(),
		Fingerprint: model.Fingerprint(0xdeadbeef),
	}
}

func TestStoreLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir)
	env := sampleEnvelope()

	require.NoError(t, Store(path, env, 3))

	got, ok := Load(path, env.Fingerprint)
	require.True(t, ok)
	require.Equal(t, env.Elements, got.Elements)
	require.Equal(t, env.TagSets, got.TagSets)
	require.Equal(t, env.Strings.Data, got.Strings.Data)
	require.Equal(t, env.Strings.Offsets, got.Strings.Offsets)
	require.Equal(t, env.Strings.Lengths, got.Strings.Lengths)
	require.Equal(t, env.Fingerprint, got.Fingerprint)
}

func TestLoadMissesOnFingerprintMismatch(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir)
	env := sampleEnvelope()
	require.NoError(t, Store(path, env, 3))

	_, ok := Load(path, model.Fingerprint(0x1234))
	require.False(t, ok)
}

func TestLoadMissesOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, ok := Load(Path(dir), model.Fingerprint(1))
	require.False(t, ok)
}

func TestLoadMissesOnCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir)
	require.NoError(t, os.WriteFile(path, []byte("not a valid cache file at all"), 0644))

	_, ok := Load(path, model.Fingerprint(1))
	require.False(t, ok)
}

func TestStoreLeavesNoTempFileBehindOnSuccess(t *testing.T) {
	dir := t.TempDir()
	env := sampleEnvelope()
	require.NoError(t, Store(Path(dir), env, 3))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, filepath.Base(Path(dir)), entries[0].Name())
}
