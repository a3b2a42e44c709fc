package main

// Transports and receivers register themselves on import.
import (
	_ "github.com/cuongceg/symbiot/internal/connector/kafka"
	_ "github.com/cuongceg/symbiot/internal/connector/mqtt"
	_ "github.com/cuongceg/symbiot/internal/connector/nats"
	_ "github.com/cuongceg/symbiot/internal/connector/rabbitmq"
	_ "github.com/cuongceg/symbiot/internal/connector/redis"

	_ "github.com/cuongceg/symbiot/internal/receivers/echo"
	_ "github.com/cuongceg/symbiot/internal/receivers/heartbeat"
	_ "github.com/cuongceg/symbiot/internal/receivers/relay"
)
