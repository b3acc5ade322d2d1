// Package server runs one cluster node: it hosts the sharded match entities,
// routes envelopes between local mailboxes and remote peers over WebSocket,
// and keeps the shard table in step with peer connections.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/summitcards/summit/internal/cluster"
	"github.com/summitcards/summit/internal/entity"
	"github.com/summitcards/summit/internal/match"
	"github.com/summitcards/summit/internal/player"
	"github.com/summitcards/summit/internal/protocol"
	"github.com/summitcards/summit/internal/randutil"
)

// Node is one process in the cluster. It owns the local entity registry, the
// shard table, and the peer connections, and it is the Sender every hosted
// entity uses to reach the rest of the cluster.
type Node struct {
	id       cluster.NodeID
	addr     string
	shardCfg cluster.Config
	seeds    []string
	registry *entity.Registry
	table    *cluster.Table
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	peers map[cluster.NodeID]*peer
}

// NewNode creates a node from its configuration. The waiting-room and
// game-state entity kinds are installed immediately; they activate lazily on
// the first envelope addressed to them.
func NewNode(cfg *Config, logger *log.Logger) *Node {
	shardCfg := cfg.ShardConfig()
	n := &Node{
		id:       cluster.NodeID(cfg.Node.ID),
		addr:     cfg.ListenAddress(),
		shardCfg: shardCfg,
		seeds:    cfg.Cluster.Peers,
		table:    cluster.NewTable(shardCfg),
		logger:   logger.WithPrefix("node").With("id", cfg.Node.ID),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		peers: make(map[cluster.NodeID]*peer),
	}
	n.registry = entity.NewRegistry(n.logger)
	n.registry.RegisterKind(shardCfg.WaitingRoomSuffix, func(id cluster.EntityID) entity.Handler {
		return match.NewWaitingRoom(id, shardCfg, n, n.logger)
	})
	n.registry.RegisterKind(shardCfg.GameStateSuffix, func(id cluster.EntityID) entity.Handler {
		return match.NewAuthority(id, shardCfg, n, n.logger, randutil.NewFromTime())
	})
	n.table.Apply(cluster.Event{Type: cluster.NodeJoined, Node: n.id})
	return n
}

// ID returns this node's cluster identity.
func (n *Node) ID() cluster.NodeID { return n.id }

// RegisterPlayer hosts a player proxy on this node. Proxies are pinned here:
// their address carries this node's id, so roster broadcasts find them
// regardless of shard placement.
func (n *Node) RegisterPlayer(name string, display player.Display) *player.Proxy {
	address := cluster.Address{Node: n.id, Entity: n.shardCfg.PlayerID(name)}
	proxy := player.New(name, address, n.shardCfg, n, display, n.logger)
	n.registry.Register(address.Entity, proxy)
	return proxy
}

// Send routes an envelope to wherever its entity lives. An envelope with an
// explicit node goes straight there; otherwise the shard table decides.
func (n *Node) Send(env protocol.Envelope) error {
	if env.Node != "" {
		if env.Node == n.id {
			return n.registry.Deliver(env)
		}
		return n.forward(env.Node, env)
	}
	owner, err := n.table.Resolve(env.To)
	if err != nil {
		return fmt.Errorf("routing %q: %w", env.To, err)
	}
	if owner == n.id {
		return n.registry.Deliver(env)
	}
	return n.forward(owner, env)
}

// receive handles an envelope arriving from a peer. Shard ownership may have
// moved while the envelope was in flight, in which case it is forwarded
// onward rather than dropped.
func (n *Node) receive(env protocol.Envelope) {
	if env.Node != "" {
		if env.Node != n.id {
			n.logger.Warn("misrouted envelope, forwarding", "to", env.To, "node", env.Node)
			if err := n.Send(env); err != nil {
				n.logger.Error("forwarding misrouted envelope", "to", env.To, "error", err)
			}
			return
		}
		if err := n.registry.Deliver(env); err != nil {
			n.logger.Error("delivering envelope", "to", env.To, "error", err)
		}
		return
	}

	owner, err := n.table.Resolve(env.To)
	if err != nil {
		n.logger.Error("routing received envelope", "to", env.To, "error", err)
		return
	}
	if owner != n.id {
		n.logger.Warn("stale ownership, forwarding", "to", env.To, "owner", owner)
		if err := n.forward(owner, env); err != nil {
			n.logger.Error("forwarding after rebalance", "to", env.To, "error", err)
		}
		return
	}
	if err := n.registry.Deliver(env); err != nil {
		n.logger.Error("delivering envelope", "to", env.To, "error", err)
	}
}

// Run serves the cluster endpoint and blocks until the context is cancelled
// or the listener fails.
func (n *Node) Run(ctx context.Context) error {
	n.registry.Start(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/cluster", n.handleCluster)
	mux.HandleFunc("/health", n.handleHealth)
	srv := &http.Server{Addr: n.addr, Handler: mux}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n.logger.Info("listening", "addr", n.addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		n.closePeers()
		n.registry.Stop()
		return nil
	})
	g.Go(func() error {
		return n.connectSeeds(ctx)
	})
	return g.Wait()
}

// connectSeeds dials every configured peer address. Failures are logged and
// retried a few times; a seed that never answers is not fatal.
func (n *Node) connectSeeds(ctx context.Context) error {
	for _, addr := range n.seeds {
		var lastErr error
		for attempt := 0; attempt < 5; attempt++ {
			if err := n.Connect(ctx, addr); err != nil {
				lastErr = err
				select {
				case <-time.After(time.Duration(attempt+1) * time.Second):
				case <-ctx.Done():
					return nil
				}
				continue
			}
			lastErr = nil
			break
		}
		if lastErr != nil {
			n.logger.Error("giving up on seed peer", "addr", addr, "error", lastErr)
		}
	}
	return nil
}

// Connect dials a peer's cluster endpoint and exchanges identities.
func (n *Node) Connect(ctx context.Context, addr string) error {
	url := fmt.Sprintf("ws://%s/cluster", addr)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", addr, err)
	}
	if err := conn.WriteJSON(hello{Node: n.id}); err != nil {
		conn.Close()
		return fmt.Errorf("greeting %s: %w", addr, err)
	}
	var reply hello
	if err := conn.ReadJSON(&reply); err != nil {
		conn.Close()
		return fmt.Errorf("reading greeting from %s: %w", addr, err)
	}
	n.addPeer(reply.Node, conn)
	return nil
}

// handleCluster accepts an inbound peer connection.
func (n *Node) handleCluster(w http.ResponseWriter, r *http.Request) {
	conn, err := n.upgrader.Upgrade(w, r, nil)
	if err != nil {
		n.logger.Error("upgrading peer connection", "error", err)
		return
	}
	var greeting hello
	if err := conn.ReadJSON(&greeting); err != nil {
		n.logger.Error("reading peer greeting", "error", err)
		conn.Close()
		return
	}
	if err := conn.WriteJSON(hello{Node: n.id}); err != nil {
		n.logger.Error("answering peer greeting", "error", err)
		conn.Close()
		return
	}
	n.addPeer(greeting.Node, conn)
}

func (n *Node) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK")
}

func (n *Node) addPeer(id cluster.NodeID, conn *websocket.Conn) {
	p := newPeer(id, conn, n.logger)

	n.mu.Lock()
	if old, ok := n.peers[id]; ok {
		old.close()
	}
	n.peers[id] = p
	n.mu.Unlock()

	n.logger.Info("peer connected", "peer", id)
	n.table.Apply(cluster.Event{Type: cluster.NodeJoined, Node: id})
	p.start(n)
}

// removePeer drops a disconnected peer and rebalances its shards away.
func (n *Node) removePeer(p *peer) {
	n.mu.Lock()
	current, ok := n.peers[p.node]
	if ok && current == p {
		delete(n.peers, p.node)
	}
	n.mu.Unlock()
	if !ok || current != p {
		return
	}

	p.close()
	n.logger.Info("peer disconnected", "peer", p.node)
	n.table.Apply(cluster.Event{Type: cluster.NodeLeft, Node: p.node})
}

func (n *Node) forward(id cluster.NodeID, env protocol.Envelope) error {
	n.mu.RLock()
	p, ok := n.peers[id]
	n.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no connection to node %q", id)
	}
	return p.enqueue(env)
}

func (n *Node) closePeers() {
	n.mu.Lock()
	peers := make([]*peer, 0, len(n.peers))
	for _, p := range n.peers {
		peers = append(peers, p)
	}
	n.peers = make(map[cluster.NodeID]*peer)
	n.mu.Unlock()

	for _, p := range peers {
		p.close()
	}
}

// hello is the first frame on a peer connection, in both directions.
type hello struct {
	Node cluster.NodeID `json:"node"`
}
