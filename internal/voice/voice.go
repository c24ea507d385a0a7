// Package voice defines the optional speech capability the Controller
// Adapter's say_to_caller tool drives. A Pipeline is not required: its
// absence is reported to the adapter as a ToolError, not a panic.
package voice

import "context"

// Pipeline is implemented by a speech backend. Speak must return
// without waiting for playback to finish; CallerSpeech surfaces
// whatever the backend transcribes from the far end, if anything.
type Pipeline interface {
	Speak(ctx context.Context, text string) error
	CallerSpeech() <-chan string
}
