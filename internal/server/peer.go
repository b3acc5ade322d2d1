package server

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/summitcards/summit/internal/cluster"
	"github.com/summitcards/summit/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 65536

	peerSendBuffer = 256
)

// ErrPeerClosed is returned when enqueueing on a closed peer connection.
var ErrPeerClosed = errors.New("peer connection closed")

// peer is one live connection to another node. Envelopes are queued on the
// send channel and written by a single pump goroutine; reads run on their own
// goroutine and hand envelopes back to the node.
type peer struct {
	node      cluster.NodeID
	conn      *websocket.Conn
	send      chan protocol.Envelope
	logger    *log.Logger
	closeOnce sync.Once
	done      chan struct{}
}

func newPeer(node cluster.NodeID, conn *websocket.Conn, logger *log.Logger) *peer {
	return &peer{
		node:   node,
		conn:   conn,
		send:   make(chan protocol.Envelope, peerSendBuffer),
		logger: logger.WithPrefix("peer").With("peer", node),
		done:   make(chan struct{}),
	}
}

func (p *peer) start(n *Node) {
	go p.writePump()
	go p.readPump(n)
}

// enqueue hands an envelope to the write pump. A full buffer closes the
// connection rather than blocking an entity goroutine.
func (p *peer) enqueue(env protocol.Envelope) error {
	select {
	case <-p.done:
		return ErrPeerClosed
	default:
	}
	select {
	case p.send <- env:
		return nil
	case <-p.done:
		return ErrPeerClosed
	default:
		p.logger.Warn("send buffer full, closing peer connection")
		p.close()
		return ErrPeerClosed
	}
}

func (p *peer) close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.conn.Close()
	})
}

func (p *peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.close()
	}()

	for {
		select {
		case env := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteJSON(env); err != nil {
				p.logger.Debug("write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-p.done:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = p.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (p *peer) readPump(n *Node) {
	defer n.removePeer(p)

	p.conn.SetReadLimit(maxMessageSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env protocol.Envelope
		if err := p.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				p.logger.Debug("read failed", "error", err)
			}
			return
		}
		n.receive(env)
	}
}
