package conn

import (
	"context"

	"github.com/gorilla/websocket"
)

// Socket is the subset of *websocket.Conn the Manager uses. Tests inject
// fakes; production uses gorilla connections unchanged.
type Socket interface {
	WriteJSON(v any) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens a Socket to the given url.
type Dialer interface {
	DialContext(ctx context.Context, url string) (Socket, error)
}

// WebsocketDialer is the production Dialer backed by
// websocket.DefaultDialer.
type WebsocketDialer struct{}

func (d *WebsocketDialer) DialContext(ctx context.Context, url string) (Socket, error) {
	c, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
