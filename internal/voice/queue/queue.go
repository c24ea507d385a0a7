// Package queue implements voice.Pipeline as a single worker draining
// a request channel, with no response wait: say_to_caller must return
// as soon as the request is enqueued, not once it is spoken.
package queue

import (
	"context"
	"errors"
	"log/slog"
)

var errFull = errors.New("speak queue full")

type speakRequest struct {
	ctx  context.Context
	text string
}

// Pipeline is a bounded, single-worker stub satisfying voice.Pipeline
// without a real TTS/STT backend wired in. Speak requests are queued
// and logged; CallerSpeech never produces anything of its own accord,
// since there is no speech recognizer behind it, but remains open for
// a real backend to feed.
type Pipeline struct {
	log      *slog.Logger
	requests chan speakRequest
	speech   chan string
	done     chan struct{}
}

// New starts the worker goroutine and returns a ready Pipeline. depth
// bounds the number of queued Speak requests (16 if depth <= 0).
func New(log *slog.Logger, depth int) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if depth <= 0 {
		depth = 16
	}
	p := &Pipeline{
		log:      log,
		requests: make(chan speakRequest, depth),
		speech:   make(chan string, depth),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Pipeline) run() {
	for req := range p.requests {
		select {
		case <-req.ctx.Done():
			continue
		default:
		}
		p.log.Info("speaking to caller", "text", req.text)
	}
	close(p.done)
}

// Speak enqueues text and returns immediately; it never waits for
// playback.
func (p *Pipeline) Speak(ctx context.Context, text string) error {
	select {
	case p.requests <- speakRequest{ctx: ctx, text: text}:
		return nil
	default:
		return errFull
	}
}

// CallerSpeech returns the channel any recognized caller speech would
// arrive on. Nothing is published onto it by this stub implementation.
func (p *Pipeline) CallerSpeech() <-chan string {
	return p.speech
}

// Close stops the worker and waits for it to drain.
func (p *Pipeline) Close() {
	close(p.requests)
	<-p.done
}
