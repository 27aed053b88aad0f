// Package speech turns narration text into an mp3 through the edge-tts command line tool.
package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/todayvn/internal/common"
	"github.com/ternarybob/todayvn/internal/interfaces"
	"github.com/ternarybob/todayvn/internal/models"
	"github.com/ternarybob/todayvn/internal/services/script"
)

const defaultTimeout = 5 * time.Minute

// Service implements interfaces.SpeechSynthesizer
type Service struct {
	runner  interfaces.CommandRunner
	config  common.SpeechConfig
	timeout time.Duration
	logger  arbor.ILogger
}

var _ interfaces.SpeechSynthesizer = (*Service)(nil)

// NewService creates a speech service
func NewService(runner interfaces.CommandRunner, config common.SpeechConfig, logger arbor.ILogger) *Service {
	return &Service{
		runner:  runner,
		config:  config,
		timeout: common.ParseDuration(config.Timeout, defaultTimeout),
		logger:  logger,
	}
}

// Synthesize writes text to a temporary file next to audioPath and has edge-tts read it into audioPath
func (s *Service) Synthesize(ctx context.Context, text, audioPath string) error {
	narration := CleanNarration(text)
	if narration == "" {
		return failure(errors.New("narration is empty after cleaning"))
	}

	input, err := os.CreateTemp(filepath.Dir(audioPath), "narration-*.txt")
	if err != nil {
		return failure(fmt.Errorf("failed to create narration file: %w", err))
	}
	defer os.Remove(input.Name())

	if _, err := input.WriteString(narration); err != nil {
		input.Close()
		return failure(fmt.Errorf("failed to write narration file: %w", err))
	}
	if err := input.Close(); err != nil {
		return failure(fmt.Errorf("failed to write narration file: %w", err))
	}

	args := []string{"--voice", s.config.Voice, "--file", input.Name(), "--write-media", audioPath}
	if s.config.Rate != "" {
		args = append(args, "--rate", s.config.Rate)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	s.logger.Info().Str("voice", s.config.Voice).Int("chars", len([]rune(narration))).Msg("Synthesizing narration")

	if _, stderr, err := s.runner.Run(ctx, s.config.Command, args...); err != nil {
		return failure(withOutput(err, stderr))
	}

	info, err := os.Stat(audioPath)
	if err != nil || info.Size() == 0 {
		return failure(fmt.Errorf("%s produced no audio at %s", s.config.Command, audioPath))
	}

	s.logger.Info().
		Str("path", audioPath).
		Int64("bytes", info.Size()).
		Dur("elapsed", time.Since(start)).
		Msg("Narration audio written")
	return nil
}

// CleanNarration strips Markdown, emoji and symbols line by line and drops lines left empty
func CleanNarration(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if cleaned := script.SpeakableText(line); cleaned != "" {
			lines = append(lines, cleaned)
		}
	}
	return strings.Join(lines, "\n")
}

func failure(err error) error {
	return models.NewStageError(models.KindSpeechSynthesis, models.StageSpeech, "", err)
}

func withOutput(err error, stderr []byte) error {
	if out := strings.TrimSpace(string(stderr)); out != "" {
		return fmt.Errorf("%w: %s", err, out)
	}
	return err
}
