package recognition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/receiptradar/receiptradar/internal/extraction"
)

var (
	// ErrInitTimeout reports that the engine failed to come up in time.
	ErrInitTimeout = errors.New("engine initialization timed out")

	// ErrRecognitionTimeout reports that an in-flight recognition call
	// exceeded its deadline and was abandoned.
	ErrRecognitionTimeout = errors.New("text recognition timed out")
)

const (
	defaultInitTimeout      = 30 * time.Second
	defaultRecognizeTimeout = 60 * time.Second
)

type engineState int

const (
	engineUninitialized engineState = iota
	engineInitializing
	engineReady
)

// initAttempt carries the outcome of one initialization attempt to every
// caller that was waiting on it.
type initAttempt struct {
	done chan struct{}
	err  error
}

// Adapter wraps an Engine with lifecycle management and graceful
// degradation. Recognize never fails: any engine problem resolves to a
// filename-based fallback extraction instead.
type Adapter struct {
	engine           Engine
	generator        *extraction.Generator
	initTimeout      time.Duration
	recognizeTimeout time.Duration

	mu      sync.Mutex
	state   engineState
	attempt *initAttempt
}

// NewAdapter creates an Adapter with the reference deadlines.
func NewAdapter(engine Engine, generator *extraction.Generator) *Adapter {
	return NewAdapterWithTimeouts(engine, generator, defaultInitTimeout, defaultRecognizeTimeout)
}

// NewAdapterWithTimeouts creates an Adapter with custom deadlines for testing.
func NewAdapterWithTimeouts(engine Engine, generator *extraction.Generator, initTimeout, recognizeTimeout time.Duration) *Adapter {
	return &Adapter{
		engine:           engine,
		generator:        generator,
		initTimeout:      initTimeout,
		recognizeTimeout: recognizeTimeout,
	}
}

// Recognize reads the receipt image and extracts structured fields from the
// recognized text. On any engine failure it returns fallback data instead
// of an error.
func (a *Adapter) Recognize(image []byte, filename string) extraction.ExtractedData {
	if err := a.ensureReady(); err != nil {
		slog.Error("Recognition engine unavailable, using filename fallback",
			"filename", filename,
			"error", err,
		)
		return a.generator.Fallback(filename)
	}

	text, err := a.recognize(image)
	if err != nil {
		slog.Error("Text recognition failed, using filename fallback",
			"filename", filename,
			"image_size", len(image),
			"error", err,
		)
		return a.generator.Fallback(filename)
	}

	lines := extraction.SplitLines(text)
	slog.Info("Recognition completed", "filename", filename, "lines", len(lines))
	return extraction.ExtractFields(lines, filename)
}

// ensureReady brings the engine up exactly once. Callers that arrive while
// another caller is initializing wait for that attempt and share its
// outcome; a failed attempt leaves the engine uninitialized so a later
// request may retry.
func (a *Adapter) ensureReady() error {
	a.mu.Lock()
	switch a.state {
	case engineReady:
		a.mu.Unlock()
		return nil
	case engineInitializing:
		attempt := a.attempt
		a.mu.Unlock()
		<-attempt.done
		return attempt.err
	}

	attempt := &initAttempt{done: make(chan struct{})}
	a.state = engineInitializing
	a.attempt = attempt
	a.mu.Unlock()

	slog.Info("Initializing recognition engine")
	err := a.initEngine()

	a.mu.Lock()
	if err != nil {
		a.state = engineUninitialized
	} else {
		a.state = engineReady
	}
	a.attempt = nil
	a.mu.Unlock()

	attempt.err = err
	close(attempt.done)
	return err
}

// initEngine runs Engine.Init under the init deadline. A late result from
// an abandoned attempt is discarded.
func (a *Adapter) initEngine() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.initTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("engine init panic: %v", r)
			}
		}()
		done <- a.engine.Init(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("initializing engine: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ErrInitTimeout
	}
}

// recognize runs Engine.Recognize under the recognition deadline.
func (a *Adapter) recognize(image []byte) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.recognizeTimeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("engine recognize panic: %v", r)}
			}
		}()
		text, err := a.engine.Recognize(ctx, image)
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", ErrRecognitionTimeout
	}
}

// Close releases the engine and resets the adapter to uninitialized. An
// in-flight initialization is allowed to finish first.
func (a *Adapter) Close() error {
	for {
		a.mu.Lock()
		if a.state != engineInitializing {
			break
		}
		attempt := a.attempt
		a.mu.Unlock()
		<-attempt.done
	}

	var err error
	if a.state == engineReady {
		err = a.engine.Close()
	}
	a.state = engineUninitialized
	a.attempt = nil
	a.mu.Unlock()
	return err
}
