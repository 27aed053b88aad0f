// Package media composes the final video by laying narration audio over a background clip or image.
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/todayvn/internal/common"
	"github.com/ternarybob/todayvn/internal/interfaces"
	"github.com/ternarybob/todayvn/internal/models"
)

const (
	EncoderVideoToolbox = "h264_videotoolbox"
	EncoderVAAPI        = "h264_vaapi"
	EncoderSoftware     = "libx264"

	defaultBitrate    = "5000k"
	defaultAudioCodec = "aac"
	defaultTimeout    = 10 * time.Minute
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".bmp":  true,
}

// Service implements interfaces.VideoCompositor with ffmpeg
type Service struct {
	runner  interfaces.CommandRunner
	config  common.MediaConfig
	goos    string
	timeout time.Duration
	logger  arbor.ILogger

	once    sync.Once
	encoder string
}

var _ interfaces.VideoCompositor = (*Service)(nil)

// NewService creates a compositor. The encoder is detected on first use unless configured.
func NewService(runner interfaces.CommandRunner, config common.MediaConfig, logger arbor.ILogger) *Service {
	return &Service{
		runner:  runner,
		config:  config,
		goos:    runtime.GOOS,
		timeout: common.ParseDuration(config.Timeout, defaultTimeout),
		logger:  logger,
	}
}

// SelectBackground returns the first existing file among candidates, or "" when none exists
func SelectBackground(candidates ...string) string {
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate
		}
	}
	return ""
}

// IsImage reports whether path names a still image by its extension
func IsImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// Encoder returns the H.264 encoder ffmpeg should use on this host
func (s *Service) Encoder(ctx context.Context) string {
	s.once.Do(func() {
		s.encoder = s.detectEncoder(ctx)
		s.logger.Info().Str("encoder", s.encoder).Msg("Video encoder selected")
	})
	return s.encoder
}

func (s *Service) detectEncoder(ctx context.Context) string {
	if s.config.Encoder != "" {
		return s.config.Encoder
	}
	if s.goos == "darwin" {
		return EncoderVideoToolbox
	}

	stdout, _, err := s.runner.Run(ctx, s.config.FFmpegPath, "-hide_banner", "-encoders")
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to list ffmpeg encoders, using software encoder")
		return EncoderSoftware
	}
	if strings.Contains(string(stdout), EncoderVAAPI) {
		return EncoderVAAPI
	}
	return EncoderSoftware
}

// Args builds the ffmpeg argument list for one composition
func (s *Service) Args(encoder, backgroundPath, audioPath, outputPath string) []string {
	bitrate := s.config.VideoBitrate
	if bitrate == "" {
		bitrate = defaultBitrate
	}
	audioCodec := s.config.AudioCodec
	if audioCodec == "" {
		audioCodec = defaultAudioCodec
	}

	if IsImage(backgroundPath) {
		return []string{
			"-y",
			"-loop", "1", "-i", backgroundPath,
			"-i", audioPath,
			"-map", "0:v:0", "-map", "1:a:0",
			"-c:v", encoder, "-b:v", bitrate,
			"-c:a", audioCodec,
			"-pix_fmt", "yuv420p",
			"-shortest",
			outputPath,
		}
	}

	return []string{
		"-y",
		"-stream_loop", "-1", "-i", backgroundPath,
		"-i", audioPath,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", encoder, "-b:v", bitrate,
		"-c:a", audioCodec,
		"-shortest",
		"-fflags", "+genpts",
		outputPath,
	}
}

// Compose writes outputPath with the narration as its only audio track.
// The background video loops until the narration ends; a still image is held for its length.
func (s *Service) Compose(ctx context.Context, backgroundPath, audioPath, outputPath string) error {
	if _, err := os.Stat(audioPath); err != nil {
		return failure(fmt.Errorf("narration audio not found: %w", err))
	}
	if _, err := os.Stat(backgroundPath); err != nil {
		return failure(fmt.Errorf("background not found: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	encoder := s.Encoder(ctx)
	args := s.Args(encoder, backgroundPath, audioPath, outputPath)

	start := time.Now()
	s.logger.Info().
		Str("background", backgroundPath).
		Str("encoder", encoder).
		Str("output", outputPath).
		Msg("Composing video")

	if _, stderr, err := s.runner.Run(ctx, s.config.FFmpegPath, args...); err != nil {
		if out := tail(string(stderr), 2000); out != "" {
			err = fmt.Errorf("%w: %s", err, out)
		}
		return failure(err)
	}

	s.logger.Info().Str("output", outputPath).Dur("elapsed", time.Since(start)).Msg("Video composed")
	return nil
}

func failure(err error) error {
	return models.NewStageError(models.KindComposition, models.StageCompose, "", err)
}

// tail keeps the end of ffmpeg's stderr, where the actual error is printed
func tail(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[len(s)-limit:]
}
