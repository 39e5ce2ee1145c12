package di

// Token is a typed service key.
type Token[T any] struct {
	name string
}

// NewToken creates a token. Use "context.Name" for public services and
// "context:name" for private ones.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// Name returns the registry key.
func (t Token[T]) Name() string {
	return t.name
}

// RegisterToken registers a lazily built singleton under the token.
func RegisterToken[T any](c Container, tok Token[T], factory func(ServiceRegistry) T) {
	c.AddSingleton(tok.name, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken resolves the token with its static type.
func GetToken[T any](c ServiceRegistry, tok Token[T]) T {
	return c.Get(tok.name).(T)
}
