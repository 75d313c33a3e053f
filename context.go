package depends

import "context"

type containerKey struct{}

// WithContainer returns a copy of ctx carrying c.
func WithContainer(ctx context.Context, c *Container) context.Context {
	return context.WithValue(ctx, containerKey{}, c)
}

// FromContext returns the container stored by WithContainer.
func FromContext(ctx context.Context) (*Container, error) {
	if ctx == nil {
		return nil, ArgumentError{Argument: "context", Cause: ErrNoContainer}
	}

	c, ok := ctx.Value(containerKey{}).(*Container)
	if !ok || c == nil {
		return nil, ArgumentError{Argument: "context", Cause: ErrNoContainer}
	}
	return c, nil
}
