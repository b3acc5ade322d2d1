package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/summitcards/summit/internal/cluster"
)

// ErrUnknownKind is returned when an envelope carries a kind outside the
// closed message set. Receivers log and drop such envelopes rather than
// failing silently.
var ErrUnknownKind = errors.New("unknown message kind")

// Envelope is the unit of delivery between entities. To selects the target
// entity; Node, when set, pins delivery to a specific process (player
// proxies live on the node that created them and are not shard-placed).
type Envelope struct {
	Node cluster.NodeID   `json:"node,omitempty"`
	To   cluster.EntityID `json:"to"`
	Kind Kind             `json:"kind"`
	Data json.RawMessage  `json:"data"`
}

// NewEnvelope builds an envelope for a shard-routed entity.
func NewEnvelope(to cluster.EntityID, kind Kind, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", kind, err)
	}
	return Envelope{To: to, Kind: kind, Data: data}, nil
}

// NewAddressedEnvelope builds an envelope pinned to an explicit address.
func NewAddressedEnvelope(to cluster.Address, kind Kind, payload any) (Envelope, error) {
	env, err := NewEnvelope(to.Entity, kind, payload)
	if err != nil {
		return Envelope{}, err
	}
	env.Node = to.Node
	return env, nil
}

// Payload decodes the envelope's data into its typed message. The switch is
// the closed set of kinds; anything else is ErrUnknownKind.
func (e Envelope) Payload() (any, error) {
	var (
		msg any
		err error
	)
	switch e.Kind {
	case KindAddPlayer:
		msg, err = decode[AddPlayer](e)
	case KindUpdateRoster:
		msg, err = decode[UpdateRoster](e)
	case KindStartGame:
		msg, err = decode[StartGame](e)
	case KindDealCards:
		msg, err = decode[DealCards](e)
	case KindGameReady:
		msg, err = decode[GameReady](e)
	case KindPlayedCard:
		msg, err = decode[PlayedCard](e)
	case KindEndTurn:
		msg, err = decode[EndTurn](e)
	case KindTurnStarted:
		msg, err = decode[TurnStarted](e)
	case KindGameOver:
		msg, err = decode[GameOver](e)
	case KindRematch:
		msg, err = decode[Rematch](e)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
	return msg, err
}

func decode[T any](e Envelope) (T, error) {
	var msg T
	if err := json.Unmarshal(e.Data, &msg); err != nil {
		return msg, fmt.Errorf("decode %s: %w", e.Kind, err)
	}
	return msg, nil
}
