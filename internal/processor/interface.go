package processor

import "context"

// Processor runs a video dropped into the input folder through the whole pipeline
type Processor interface {
	Process(ctx context.Context, videoPath string) error
	// ProcessExisting handles the videos already waiting in dir when the process starts.
	ProcessExisting(ctx context.Context, dir string) error
}
