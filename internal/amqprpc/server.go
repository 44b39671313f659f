package amqprpc

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"gridnet.org/internal/dispatch"
	"gridnet.org/internal/obs"
)

// Server consumes command queues and runs each message through the
// dispatcher, publishing the result envelope to the caller's reply queue.
type Server struct {
	conn       *amqp.Connection
	dispatcher *dispatch.Dispatcher
	registry   *dispatch.Registry
	network    string
	logger     zerolog.Logger
}

func NewServer(conn *amqp.Connection, dispatcher *dispatch.Dispatcher, registry *dispatch.Registry, network string) *Server {
	return &Server{
		conn:       conn,
		dispatcher: dispatcher,
		registry:   registry,
		network:    network,
		logger:     obs.Component("amqp"),
	}
}

// Serve declares one queue per registered command and consumes them until
// ctx is cancelled or the channel closes.
func (s *Server) Serve(ctx context.Context) error {
	ch, err := s.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Qos(16, 0, false); err != nil {
		return err
	}

	deliveries := make(chan amqp.Delivery)
	for _, serviceName := range s.registry.ServiceNames() {
		entry, _ := s.registry.Service(serviceName)
		for _, cmd := range entry.Schema.Commands() {
			queue := QueueName(s.network, serviceName, cmd.Name)
			if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
				return err
			}
			msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
			if err != nil {
				return err
			}
			go func() {
				for msg := range msgs {
					select {
					case deliveries <- msg:
					case <-ctx.Done():
						return
					}
				}
			}()
		}
	}

	s.logger.Info().Str("network", s.network).Msg("Consuming command queues.")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-deliveries:
			s.handle(ctx, ch, msg)
		}
	}
}

func (s *Server) handle(ctx context.Context, ch *amqp.Channel, msg amqp.Delivery) {
	defer func() { _ = msg.Ack(false) }()

	service, command, ok := splitQueue(s.network, msg.RoutingKey)
	if !ok {
		s.logger.Warn().Str("queue", msg.RoutingKey).Msg("Message on an unrecognized queue.")
		return
	}

	var res *dispatch.Result
	req, err := decodeRequest(msg.Body)
	if err != nil {
		res = &dispatch.Result{
			Network: s.network,
			Service: service,
			Command: command,
			Error:   err.Error(),
		}
	} else {
		cmd := &dispatch.Command{
			ServiceName: service,
			CommandName: command,
			Arguments:   req.Arguments,
		}
		actx := &dispatch.ApiContext{
			SourceAddress: "amqp",
			Authorization: req.Authorization,
		}
		res, err = s.dispatcher.ProcessCommand(ctx, cmd, actx)
		if err != nil {
			s.logger.Error().Err(err).Msg("Dispatch failed.")
			return
		}
	}

	if msg.ReplyTo == "" {
		return
	}
	body, err := json.Marshal(res)
	if err != nil {
		s.logger.Error().Err(err).Msg("Unable to encode the result envelope.")
		return
	}
	err = ch.PublishWithContext(ctx, "", msg.ReplyTo, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: msg.CorrelationId,
		Body:          body,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("reply_to", msg.ReplyTo).Msg("Unable to publish the reply.")
	}
}

// splitQueue recovers service and command names from a queue name produced
// by QueueName.
func splitQueue(network, queue string) (service, command string, ok bool) {
	prefix := network + "."
	if len(queue) <= len(prefix) || queue[:len(prefix)] != prefix {
		return "", "", false
	}
	rest := queue[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '.' {
			return rest[:i], rest[i+1:], rest[:i] != "" && rest[i+1:] != ""
		}
	}
	return "", "", false
}
