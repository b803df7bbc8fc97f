package factory

import "context"

// Engine defines the poll-cycle operations of one category
type Engine interface {
	Process(ctx context.Context)
	IsInterfaceNil() bool
}

// WebServer defines the serving component operations
type WebServer interface {
	Start()
	Address() string
	Close() error
	IsInterfaceNil() bool
}
