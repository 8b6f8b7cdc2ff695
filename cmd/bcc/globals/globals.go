package globals

import (
	"context"

	"baikalctl/internal/client"
	"baikalctl/internal/config"
)

type key struct{}

type Value struct {
	Config config.ClientConfig
	Client *client.Client
	// Table renders listings as tables instead of JSON.
	Table bool
}

func Set(ctx context.Context, value *Value) context.Context {
	return context.WithValue(ctx, key{}, value)
}

func Get(ctx context.Context) *Value {
	return ctx.Value(key{}).(*Value)
}
