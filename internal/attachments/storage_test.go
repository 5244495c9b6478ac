package attachments

import (
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndOpen(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStorage(fs, "/uploads", 0)
	assert.Equal(t, DefaultMaxSize, s.MaxSize())

	saved, err := s.Save(3, "../../etc/Shot.PNG", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "Shot.PNG", saved.FileName)
	assert.True(t, strings.HasSuffix(saved.StoredName, ".png"))
	assert.Equal(t, int64(9), saved.Size)

	exists, err := afero.Exists(fs, "/uploads/3/"+saved.StoredName)
	require.NoError(t, err)
	assert.True(t, exists)

	f, err := s.Open(3, saved.StoredName)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	f.Close()
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	_, err = s.Open(4, saved.StoredName)
	assert.Error(t, err, "files are scoped per project")

	require.NoError(t, s.Remove(3, saved.StoredName))
	require.NoError(t, s.Remove(3, saved.StoredName))
}

func TestSaveLimits(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"at limit", "12345", nil},
		{"over limit", "123456", ErrTooLarge},
		{"empty", "", ErrEmptyFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			s := NewStorage(fs, "/u", 5)
			_, err := s.Save(1, "a.txt", strings.NewReader(tt.content))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				files, _ := afero.ReadDir(fs, "/u/1")
				assert.Empty(t, files, "rejected uploads leave no file")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	s := NewStorage(afero.NewMemMapFs(), "/u", 0)
	for _, name := range []string{"", "../x", "a/b", ".hidden"} {
		_, err := s.Open(1, name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"report.pdf":        "report.pdf",
		`C:\tmp\report.pdf`: "report.pdf",
		"  ":                "file",
		"..":                "file",
		"a/b/":              "b",
		"bad\x00name.txt":   "badname.txt",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFileName(in), in)
	}
}
