package internal

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Player is one live connection. Its Id is the identity the lobby and the
// game engine know the user by.
type Player struct {
	Id          string          `json:"id"`
	Conn        *websocket.Conn `json:"-"`
	ConnectedAt time.Time       `json:"connected_at"`

	Mu     sync.Mutex `json:"-"`
	closed bool
}

func NewPlayer(id string, conn *websocket.Conn) *Player {
	return &Player{
		Id:          id,
		Conn:        conn,
		ConnectedAt: time.Now(),
	}
}

func (p *Player) ID() string {
	return p.Id
}

// Send writes v as a JSON text frame. Writes are serialized per connection.
func (p *Player) Send(v any) error {
	return p.SafeWriteJSON(v)
}

func (p *Player) SafeWriteJSON(v any) error {
	p.Mu.Lock()
	defer p.Mu.Unlock()
	if p.closed {
		return websocket.ErrCloseSent
	}
	if err := p.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return p.Conn.WriteJSON(v)
}

// Ping sends a websocket ping control frame.
func (p *Player) Ping() error {
	p.Mu.Lock()
	defer p.Mu.Unlock()
	if p.closed {
		return websocket.ErrCloseSent
	}
	return p.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (p *Player) Close() error {
	p.Mu.Lock()
	defer p.Mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.Conn.Close()
}
