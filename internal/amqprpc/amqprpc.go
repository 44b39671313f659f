// Package amqprpc carries commands over RabbitMQ using the RPC pattern:
// one request queue per command, replies routed back through the caller's
// reply queue by correlation id. Responses reuse the dispatch result
// envelope byte for byte with the HTTP transport.
package amqprpc

import (
	"encoding/json"
	"fmt"
)

// Request is the body published to a command queue.
type Request struct {
	Arguments     map[string]any `json:"arguments,omitempty"`
	Authorization string         `json:"authorization,omitempty"`
}

// QueueName returns the request queue for one command. Queues are scoped by
// network name so multiple networks can share a broker.
func QueueName(network, service, command string) string {
	return fmt.Sprintf("%s.%s.%s", network, service, command)
}

func encodeRequest(req Request) ([]byte, error) {
	return json.Marshal(req)
}

func decodeRequest(body []byte) (Request, error) {
	var req Request
	if len(body) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return Request{}, fmt.Errorf("malformed request body: %w", err)
	}
	return req, nil
}
