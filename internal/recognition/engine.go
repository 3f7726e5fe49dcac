package recognition

import "context"

// Engine is the external optical recognition backend. Implementations turn
// receipt image bytes into raw text and report failure as an error; they
// make no attempt to interpret the text.
type Engine interface {
	// Init prepares the engine for recognition. It is called at most once
	// between Close calls.
	Init(ctx context.Context) error

	// Recognize returns the raw text read from the image.
	Recognize(ctx context.Context, image []byte) (string, error)

	// Close releases the engine's resources.
	Close() error
}
