// Package uploads tracks client-side document uploads through processing and deferred classification.
package uploads

import (
	"errors"
	"fmt"
	"time"

	"github.com/kmrl/documind/internal/core/domain"
)

type State string

const (
	StateUploading  State = "uploading"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateError      State = "error"
)

// ClassificationState is orthogonal to State and only moves once the entry is completed.
type ClassificationState string

const (
	ClassificationNone      ClassificationState = ""
	ClassificationLoading   ClassificationState = "loading"
	ClassificationCompleted ClassificationState = "completed"
	ClassificationError     ClassificationState = "error"
)

const (
	progressUploading  = 10
	progressProcessing = 50
	progressCompleted  = 100
)

var ErrIllegalTransition = errors.New("illegal upload transition")

var transitions = map[State][]State{
	StateUploading:  {StateProcessing, StateError},
	StateProcessing: {StateCompleted, StateError},
}

var classificationTransitions = map[ClassificationState][]ClassificationState{
	ClassificationNone:    {ClassificationLoading, ClassificationCompleted},
	ClassificationLoading: {ClassificationCompleted, ClassificationError},
}

func allowed[S comparable](table map[S][]S, from, to S) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Entry is one tracked file. Snapshots handed to subscribers are copies.
type Entry struct {
	ID                  string                       `json:"id"`
	Path                string                       `json:"path"`
	Filename            string                       `json:"filename"`
	State               State                        `json:"state"`
	Progress            int                          `json:"progress"`
	ProcessingID        string                       `json:"processing_id,omitempty"`
	Synthesized         bool                         `json:"synthesized_id,omitempty"`
	Result              *domain.ProcessingResult     `json:"result,omitempty"`
	Error               string                       `json:"error,omitempty"`
	ClassificationState ClassificationState          `json:"classification_state,omitempty"`
	Classification      *domain.ClassificationResult `json:"classification,omitempty"`
	ClassificationError string                       `json:"classification_error,omitempty"`
	StartedAt           time.Time                    `json:"started_at"`
	UpdatedAt           time.Time                    `json:"updated_at"`
}

// Terminal reports whether nothing further will happen to the entry.
func (e Entry) Terminal() bool {
	switch e.State {
	case StateError:
		return true
	case StateCompleted:
		return e.ClassificationState != ClassificationLoading
	default:
		return false
	}
}

func (e *Entry) transition(to State, now time.Time) error {
	if !allowed(transitions, e.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, e.State, to)
	}
	e.State = to
	switch to {
	case StateProcessing:
		e.Progress = progressProcessing
	case StateCompleted:
		e.Progress = progressCompleted
	}
	e.UpdatedAt = now
	return nil
}

func (e *Entry) classificationTransition(to ClassificationState, now time.Time) error {
	if e.State != StateCompleted {
		return fmt.Errorf("%w: classification %s while %s", ErrIllegalTransition, to, e.State)
	}
	if !allowed(classificationTransitions, e.ClassificationState, to) {
		return fmt.Errorf("%w: classification %q -> %s", ErrIllegalTransition, e.ClassificationState, to)
	}
	e.ClassificationState = to
	e.UpdatedAt = now
	return nil
}

func (e Entry) clone() Entry {
	if e.Result != nil {
		r := *e.Result
		e.Result = &r
	}
	if e.Classification != nil {
		c := *e.Classification
		e.Classification = &c
	}
	return e
}
