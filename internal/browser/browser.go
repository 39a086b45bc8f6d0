// Package browser opens the user's default web browser once the server is up.
// A launch is best effort: it runs on its own goroutine and its outcome is
// only reported, never propagated to the serving path.
package browser

import (
	"context"
	"fmt"
	"io"
	"time"

	pkgbrowser "github.com/pkg/browser"
)

// Opener opens a URL in a browser.
//
//go:generate mockgen -source browser.go -destination mock/browser.go
type Opener interface {
	OpenURL(url string) error
}

type systemOpener struct{}

// System returns the Opener backed by the platform's default browser. Output
// of the helper process (xdg-open, open, rundll32) is discarded.
func System() Opener {
	pkgbrowser.Stdout = io.Discard
	pkgbrowser.Stderr = io.Discard
	return systemOpener{}
}

func (systemOpener) OpenURL(url string) error {
	return pkgbrowser.OpenURL(url)
}

// Launcher opens a URL after a delay.
type Launcher struct {
	opener Opener
	delay  time.Duration
}

func NewLauncher(opener Opener, delay time.Duration) *Launcher {
	return &Launcher{opener: opener, delay: delay}
}

// Launch returns immediately. After the delay it opens url and calls done with
// the result; done receives ctx.Err() if ctx ends first and nothing is opened.
// The returned channel closes once done has returned.
func (l *Launcher) Launch(ctx context.Context, url string, done func(error)) <-chan struct{} {
	finished := make(chan struct{})

	go func() {
		defer close(finished)

		err := l.open(ctx, url)
		if done != nil {
			done(err)
		}
	}()

	return finished
}

func (l *Launcher) open(ctx context.Context, url string) (err error) {
	if l.delay > 0 {
		timer := time.NewTimer(l.delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()

	return l.opener.OpenURL(url)
}

// PanicError reports an Opener that panicked instead of returning an error.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("browser opener panicked: %v", e.Value)
}
