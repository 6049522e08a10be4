package fs

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFactory(t *testing.T) {
	factory := NewDefaultFactory()

	assert.IsType(t, &afero.OsFs{}, factory.Production())
	assert.IsType(t, &afero.MemMapFs{}, factory.Memory())
}

func TestMemoryFilesystemIsolation(t *testing.T) {
	factory := NewDefaultFactory()
	first, second := factory.Memory(), factory.Memory()

	require.NoError(t, afero.WriteFile(first, "/clip.wav", []byte("RIFF"), 0644))

	exists, err := afero.Exists(second, "/clip.wav")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	factory := NewDefaultFactory()
	base := factory.Memory()
	require.NoError(t, afero.WriteFile(base, "/clip.wav", []byte("RIFF"), 0644))

	ro := factory.ReadOnly(base)

	content, err := afero.ReadFile(ro, "/clip.wav")
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF"), content)

	assert.Error(t, afero.WriteFile(ro, "/clip.wav", []byte("junk"), 0644))
	assert.Error(t, ro.Remove("/clip.wav"))
}
