package upload

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/todayvn/internal/common"
	"github.com/ternarybob/todayvn/internal/models"
)

func TestMetadata_Defaults(t *testing.T) {
	service := NewService(common.UploadConfig{Tags: []string{"베트남", "뉴스"}}, arbor.NewLogger())

	meta := service.Metadata("오늘의 베트남 뉴스 | 2025-01-15 07:00", "요약")
	assert.Equal(t, "오늘의 베트남 뉴스 | 2025-01-15 07:00", meta.Title)
	assert.Equal(t, "요약", meta.Description)
	assert.Equal(t, []string{"베트남", "뉴스"}, meta.Tags)
	assert.Equal(t, CategoryNewsPolitics, meta.CategoryID)
	assert.Equal(t, "private", meta.Privacy)
	assert.Equal(t, "ko", meta.Language)

	service = NewService(common.UploadConfig{Privacy: "unlisted", CategoryID: "22", Language: "vi"}, arbor.NewLogger())
	meta = service.Metadata("t", "d")
	assert.Equal(t, "unlisted", meta.Privacy)
	assert.Equal(t, "22", meta.CategoryID)
	assert.Equal(t, "vi", meta.Language)
}

func TestUpload_ChecksFileBeforeNetwork(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.mp4")
	require.NoError(t, os.WriteFile(empty, nil, 0644))

	tests := []struct {
		name string
		path string
	}{
		{name: "missing file", path: filepath.Join(dir, "missing.mp4")},
		{name: "empty file", path: empty},
		{name: "directory", path: dir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewService(common.UploadConfig{}, arbor.NewLogger())
			called := false
			service.newClient = func(context.Context) (*http.Client, error) {
				called = true
				return http.DefaultClient, nil
			}

			id, err := service.Upload(context.Background(), tt.path, service.Metadata("t", "d"))
			require.Error(t, err)
			assert.Empty(t, id)
			assert.True(t, errors.Is(err, models.ErrUpload))
			assert.False(t, called, "no client is built for an unusable file")
		})
	}
}

func TestUpload_MissingCredentials(t *testing.T) {
	video := filepath.Join(t.TempDir(), "final.mp4")
	require.NoError(t, os.WriteFile(video, []byte("mp4"), 0644))

	service := NewService(common.UploadConfig{ClientID: "id"}, arbor.NewLogger())

	_, err := service.Upload(context.Background(), video, service.Metadata("t", "d"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingCredentials))
	assert.Equal(t, models.KindUpload, models.KindOf(err))
}
