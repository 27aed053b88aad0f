// Package upload publishes the finished video through the YouTube Data API v3.
package upload

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/ternarybob/todayvn/internal/common"
	"github.com/ternarybob/todayvn/internal/interfaces"
	"github.com/ternarybob/todayvn/internal/models"
)

const (
	// CategoryNewsPolitics is the YouTube category id for News & Politics
	CategoryNewsPolitics = "25"

	defaultPrivacy  = "private"
	defaultLanguage = "ko"
	defaultTimeout  = 15 * time.Minute
)

// ErrMissingCredentials is returned when the OAuth client or refresh token is not configured
var ErrMissingCredentials = errors.New("youtube client id, client secret and refresh token are required")

// Service implements interfaces.VideoUploader
type Service struct {
	config  common.UploadConfig
	timeout time.Duration
	logger  arbor.ILogger

	// newClient builds the authenticated HTTP client, replaceable in tests
	newClient func(ctx context.Context) (*http.Client, error)
}

var _ interfaces.VideoUploader = (*Service)(nil)

// NewService creates an uploader that authenticates with a long-lived refresh token
func NewService(config common.UploadConfig, logger arbor.ILogger) *Service {
	s := &Service{
		config:  config,
		timeout: common.ParseDuration(config.Timeout, defaultTimeout),
		logger:  logger,
	}
	s.newClient = s.oauthClient
	return s
}

// Metadata assembles upload metadata from the digest title and description and the configured defaults
func (s *Service) Metadata(title, description string) models.UploadMetadata {
	meta := models.UploadMetadata{
		Title:       title,
		Description: description,
		Tags:        s.config.Tags,
		CategoryID:  s.config.CategoryID,
		Privacy:     s.config.Privacy,
		Language:    s.config.Language,
	}
	if meta.CategoryID == "" {
		meta.CategoryID = CategoryNewsPolitics
	}
	if meta.Privacy == "" {
		meta.Privacy = defaultPrivacy
	}
	if meta.Language == "" {
		meta.Language = defaultLanguage
	}
	return meta
}

// Upload sends videoPath and returns the new video id.
// The file is checked before any network call is made.
func (s *Service) Upload(ctx context.Context, videoPath string, metadata models.UploadMetadata) (string, error) {
	info, err := os.Stat(videoPath)
	if err != nil {
		return "", failure(fmt.Errorf("video not found: %w", err))
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return "", failure(fmt.Errorf("video %s is empty or not a file", videoPath))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	client, err := s.newClient(ctx)
	if err != nil {
		return "", failure(fmt.Errorf("youtube auth: %w", err))
	}

	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", failure(fmt.Errorf("youtube service: %w", err))
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                metadata.Title,
			Description:          metadata.Description,
			Tags:                 metadata.Tags,
			CategoryId:           metadata.CategoryID,
			DefaultLanguage:      metadata.Language,
			DefaultAudioLanguage: metadata.Language,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           metadata.Privacy,
			SelfDeclaredMadeForKids: false,
		},
	}

	f, err := os.Open(videoPath)
	if err != nil {
		return "", failure(fmt.Errorf("open video file: %w", err))
	}
	defer f.Close()

	s.logger.Info().
		Str("title", metadata.Title).
		Str("privacy", metadata.Privacy).
		Int64("bytes", info.Size()).
		Msg("Uploading video")

	start := time.Now()
	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(f).Context(ctx).Do()
	if err != nil {
		return "", failure(fmt.Errorf("youtube upload: %w", err))
	}

	s.logger.Info().
		Str("video_id", uploaded.Id).
		Str("url", "https://www.youtube.com/watch?v="+uploaded.Id).
		Dur("elapsed", time.Since(start)).
		Msg("Video uploaded")
	return uploaded.Id, nil
}

// oauthClient exchanges the refresh token for access tokens on demand
func (s *Service) oauthClient(ctx context.Context) (*http.Client, error) {
	if s.config.ClientID == "" || s.config.ClientSecret == "" || s.config.RefreshToken == "" {
		return nil, ErrMissingCredentials
	}

	conf := &oauth2.Config{
		ClientID:     s.config.ClientID,
		ClientSecret: s.config.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}
	token := &oauth2.Token{
		RefreshToken: s.config.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	return conf.Client(ctx, token), nil
}

func failure(err error) error {
	return models.NewStageError(models.KindUpload, models.StageUpload, "", err)
}
