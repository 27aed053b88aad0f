package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a pipeline failure so callers can decide what to do with it
type ErrorKind string

const (
	KindFetch                 ErrorKind = "fetch_error"            // per source, recoverable
	KindAggregation           ErrorKind = "aggregation_failure"    // no section produced content
	KindTranslation           ErrorKind = "translation_failure"    // per section, recoverable by passthrough
	KindTranslationExhaustion ErrorKind = "translation_exhaustion" // no section survived translation
	KindRender                ErrorKind = "render_failure"         // document cannot be flattened
	KindSpeechSynthesis       ErrorKind = "speech_synthesis_failure"
	KindComposition           ErrorKind = "composition_failure"
	KindUpload                ErrorKind = "upload_failure"
)

// Pipeline stage names
const (
	StageFetch     = "fetch"
	StageAggregate = "aggregate"
	StageTranslate = "translate"
	StageRender    = "render"
	StageDigest    = "digest"
	StageSpeech    = "speech"
	StageCompose   = "compose"
	StageUpload    = "upload"
)

// Sentinels for errors.Is matching against a StageError kind
var (
	ErrFetch                 = errors.New("fetch error")
	ErrAggregation           = errors.New("aggregation failure")
	ErrTranslation           = errors.New("translation failure")
	ErrTranslationExhaustion = errors.New("translation exhaustion")
	ErrRender                = errors.New("render failure")
	ErrSpeechSynthesis       = errors.New("speech synthesis failure")
	ErrComposition           = errors.New("composition failure")
	ErrUpload                = errors.New("upload failure")
)

var kindSentinels = map[ErrorKind]error{
	KindFetch:                 ErrFetch,
	KindAggregation:           ErrAggregation,
	KindTranslation:           ErrTranslation,
	KindTranslationExhaustion: ErrTranslationExhaustion,
	KindRender:                ErrRender,
	KindSpeechSynthesis:       ErrSpeechSynthesis,
	KindComposition:           ErrComposition,
	KindUpload:                ErrUpload,
}

// StageError is a typed pipeline failure. It always names the stage and the source or
// section that caused it; Err is the root cause and is reachable through errors.Unwrap.
type StageError struct {
	Kind  ErrorKind
	Stage string
	Name  string // source or section name, may be empty for run-wide failures
	Err   error
}

// NewStageError creates a StageError
func NewStageError(kind ErrorKind, stage, name string, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, Name: name, Err: err}
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("%s: stage=%s", e.Kind, e.Stage)
	if e.Name != "" {
		msg += fmt.Sprintf(" name=%q", e.Name)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinel, e.g. errors.Is(err, models.ErrTranslation)
func (e *StageError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// KindOf returns the kind of the first StageError in err's chain, or "" if there is none
func KindOf(err error) ErrorKind {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Kind
	}
	return ""
}
