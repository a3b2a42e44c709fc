package mqtt

import (
	"context"

	"github.com/cuongceg/symbiot/internal/broker"
)

func dial(ctx context.Context, ep broker.Endpoint) (broker.Conn, error) {
	return Open(ctx, ep)
}

func init() {
	broker.RegisterTransport(broker.Transport{
		Schemes:     []string{"mqtt", "tcp"},
		DefaultPort: "1883",
		Dial:        dial,
	})
}
