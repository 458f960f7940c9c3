// Package schema validates transcript events before they are published.
package schema

import (
	"errors"
	"fmt"

	"github.com/oLauand/subtitlesforall/internal/models"
)

// Validation errors.
var (
	ErrMissingEventType = errors.New("schema: missing eventType")
	ErrMissingSessionID = errors.New("schema: missing sessionId")
	ErrMissingSegmentID = errors.New("schema: missing segmentId")
	ErrInvalidTimeRange = errors.New("schema: segment end precedes start")
	ErrUnknownEvent     = errors.New("schema: unknown event type")
)

// Validator checks transcript events against their schemas.
type Validator struct{}

// New creates a validator.
func New() *Validator {
	return &Validator{}
}

// Validate checks a transcript event. Unknown event types are rejected
// so a misrouted payload never reaches a topic.
func (v *Validator) Validate(event any) error {
	switch e := event.(type) {
	case *models.TranscriptPartial:
		return v.validatePartial(e)
	case models.TranscriptPartial:
		return v.validatePartial(&e)
	case *models.TranscriptSegment:
		return v.validateSegment(e)
	case models.TranscriptSegment:
		return v.validateSegment(&e)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownEvent, event)
	}
}

func (v *Validator) validatePartial(e *models.TranscriptPartial) error {
	if e.EventType == "" {
		return ErrMissingEventType
	}
	if e.SessionID == "" {
		return ErrMissingSessionID
	}
	return nil
}

func (v *Validator) validateSegment(e *models.TranscriptSegment) error {
	if e.EventType == "" {
		return ErrMissingEventType
	}
	if e.SessionID == "" {
		return ErrMissingSessionID
	}
	if e.SegmentID == "" {
		return ErrMissingSegmentID
	}
	if e.T1Ms < e.T0Ms {
		return fmt.Errorf("%w: t0=%d t1=%d", ErrInvalidTimeRange, e.T0Ms, e.T1Ms)
	}
	return nil
}
