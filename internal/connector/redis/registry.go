package redis

import (
	"context"

	"github.com/cuongceg/symbiot/internal/broker"
)

func dial(ctx context.Context, ep broker.Endpoint) (broker.Conn, error) {
	return Open(ctx, ep)
}

func init() {
	broker.RegisterTransport(broker.Transport{
		Schemes:     []string{"redis"},
		DefaultPort: "6379",
		Dial:        dial,
	})
}
