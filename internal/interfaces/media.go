package interfaces

import (
	"context"

	"github.com/ternarybob/todayvn/internal/models"
)

// CommandRunner executes an external process and returns its captured output.
// A non-zero exit is reported as an error; stdout and stderr are returned either way.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)
}

// SpeechSynthesizer converts narration text into an audio file
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, audioPath string) error
}

// VideoCompositor lays narration audio over a background visual
type VideoCompositor interface {
	Compose(ctx context.Context, backgroundPath, audioPath, outputPath string) error
}

// VideoUploader publishes a finished video and returns its remote id
type VideoUploader interface {
	Upload(ctx context.Context, videoPath string, metadata models.UploadMetadata) (string, error)
}
