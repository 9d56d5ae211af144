package board

import (
	"github.com/okian/pitchside/internal/domain/formation"
	"github.com/okian/pitchside/pkg/logger"
)

// Option applies a configuration option to the Board.
type Option func(*Board)

// WithFormations sets the initial home and away formations.
func WithFormations(home, away formation.Formation) Option {
	return func(b *Board) {
		b.initHome = home
		b.initAway = away
	}
}

// WithDragThreshold sets the pixel displacement, in either axis, that
// promotes a press on a marker into a drag.
func WithDragThreshold(px float64) Option {
	return func(b *Board) {
		if px >= 0 {
			b.dragThreshold = px
		}
	}
}

// WithArrowMinLength sets the normalized length an arrow must exceed to be kept.
func WithArrowMinLength(units float64) Option {
	return func(b *Board) {
		if units >= 0 {
			b.arrowMinLength = units
		}
	}
}

// WithReadOnly starts the board in read-only mode.
func WithReadOnly(readOnly bool) Option {
	return func(b *Board) {
		b.readOnly = readOnly
	}
}

// WithSelectionHandler registers the callback fired on a click without drag.
func WithSelectionHandler(h SelectionHandler) Option {
	return func(b *Board) {
		b.onSelect = h
	}
}

// WithPersister sets the collaborator that receives saved snapshots.
func WithPersister(p Persister) Option {
	return func(b *Board) {
		if p != nil {
			b.persister = p
		}
	}
}

// WithIDGenerator overrides arrow id generation.
func WithIDGenerator(gen func() string) Option {
	return func(b *Board) {
		if gen != nil {
			b.newID = gen
		}
	}
}

// WithFreeForm makes the board a free-form canvas: no formations, elements
// are added and removed individually and carry no half-confinement.
func WithFreeForm() Option {
	return func(b *Board) {
		b.freeForm = true
	}
}

// WithLogger sets a custom logger for the board.
func WithLogger(l logger.Logger) Option {
	return func(b *Board) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithName labels the board in logs and notices, typically the match id.
func WithName(name string) Option {
	return func(b *Board) {
		if name != "" {
			b.name = name
		}
	}
}
