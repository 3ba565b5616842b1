package retrieval

import "context"

// ExampleSource is what reply generation needs from this package.
type ExampleSource interface {
	Similar(ctx context.Context, text, intent string) ([]Example, error)
}

// NoopSource is used when no example database is configured.
type NoopSource struct{}

var _ ExampleSource = NoopSource{}

func (NoopSource) Similar(context.Context, string, string) ([]Example, error) {
	return nil, nil
}
