package rabbitmq

import (
	"context"

	"github.com/cuongceg/symbiot/internal/broker"
)

func dial(ctx context.Context, ep broker.Endpoint) (broker.Conn, error) {
	return Open(ctx, ep)
}

func init() {
	broker.RegisterTransport(broker.Transport{
		Schemes:     []string{"amqp"},
		DefaultPort: "5672",
		Dial:        dial,
	})
}
