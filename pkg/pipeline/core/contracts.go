package core

import "context"

// InputAdapter loads the input dataset for pipeline processing.
type InputAdapter[T any] interface {
	Load(ctx context.Context) (T, error)
}

// OutputAdapter persists the dataset produced by pipeline processing.
type OutputAdapter[T any] interface {
	Store(ctx context.Context, out T) error
}

// Processor transforms one input item into one output item.
type Processor[In any, Out any] interface {
	Process(ctx context.Context, in In) (Out, error)
}

// ProcessFunc adapts a function to the Processor interface.
type ProcessFunc[In any, Out any] func(ctx context.Context, in In) (Out, error)

func (f ProcessFunc[In, Out]) Process(ctx context.Context, in In) (Out, error) {
	return f(ctx, in)
}
