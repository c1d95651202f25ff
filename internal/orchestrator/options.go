package orchestrator

import "time"

type options struct {
	batchSize        int
	batchDelay       time.Duration
	fetchParallelism int
	maxImages        int
}

func defaultOptions() options {
	return options{
		batchSize:        1,
		batchDelay:       2 * time.Second,
		fetchParallelism: 4,
		maxImages:        20,
	}
}

type Option func(*options)

// WithBatchSize sets how many images go to the vision model in one call.
func WithBatchSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.batchSize = size
		}
	}
}

// WithBatchDelay sets the pause between two vision calls.
func WithBatchDelay(delay time.Duration) Option {
	return func(o *options) {
		if delay >= 0 {
			o.batchDelay = delay
		}
	}
}

func WithFetchParallelism(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.fetchParallelism = n
		}
	}
}

// WithMaxImages caps the photos analyzed per evaluation.
func WithMaxImages(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxImages = n
		}
	}
}
