package sim

import "fmt"

// SetPair pairs a with other in both directions. Either side already having
// a pair is an error and leaves both untouched.
func (a *QuantumAdapter) SetPair(other *QuantumAdapter) error {
	if other == nil || other == a {
		return fmt.Errorf("adapter %s: invalid pair", a.Name)
	}
	first, second := &a.bridgeState, &other.bridgeState
	if other.ID < a.ID {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if a.pair != NoNode {
		return &PairAdapterAlreadyExistsError{Adapter: a.Name, Pair: a.pairName}
	}
	if other.pair != NoNode {
		return &PairAdapterAlreadyExistsError{Adapter: other.Name, Pair: other.pairName}
	}
	a.pair, a.pairName = other.ID, other.Name
	other.pair, other.pairName = a.ID, a.Name
	return nil
}

// PairAdapter returns the paired adapter.
func (a *QuantumAdapter) PairAdapter() (NodeID, error) {
	if p := a.Pair(); p != NoNode {
		return p, nil
	}
	return NoNode, &PairAdapterDoesNotExistError{Adapter: a.Name}
}

// Key returns the key shared with peer, if one was established.
func (a *QuantumAdapter) Key(peer NodeID) ([]byte, bool) {
	a.keyMu.Lock()
	defer a.keyMu.Unlock()
	k, ok := a.keys[peer]
	return append([]byte(nil), k...), ok
}

// crossBridge carries p from bridge b to its pair. Adapters protect the
// payload with a QKD key, establishing one first if needed; converters hand
// the payload over as is.
func (w *World) crossBridge(p *ClassicDataPacket, b bridgeNode, pair NodeID) error {
	switch v := b.(type) {
	case *QuantumAdapter:
		return w.relayEncrypted(p, v, pair)
	case *C2QConverter:
		w.Emit(PacketTransmitted, v.ID, LevelInfo, map[string]any{
			"packet_id": p.ID,
			"to":        w.nodeName(pair),
			"bytes":     len(p.Data),
		})
		w.Emit(ClassicalDataReceived, pair, LevelInfo, map[string]any{
			"packet_id": p.ID,
			"from":      v.Name,
			"data":      string(p.Data),
		})
		return nil
	default:
		return &DefaultGatewayNotFoundError{Node: b.Base().Name, Destination: w.nodeName(p.FinalDestination())}
	}
}

func (w *World) relayEncrypted(p *ClassicDataPacket, a *QuantumAdapter, pair NodeID) error {
	w.Emit(PacketReceived, a.ID, LevelInfo, map[string]any{
		"packet_id": p.ID,
		"from":      w.nodeName(p.From),
	})
	key, ok := a.Key(pair)
	if !ok {
		kx, err := w.EstablishKey(a.ID)
		if err != nil {
			return err
		}
		key = kx.Key
	}

	ciphertext := xorStream(p.Data, key)
	w.Emit(PacketTransmitted, a.ID, LevelInfo, map[string]any{
		"packet_id": p.ID,
		"to":        w.nodeName(pair),
		"bytes":     len(ciphertext),
	})

	far, _ := w.Node(pair).(*QuantumAdapter)
	farKey, ok := far.Key(a.ID)
	if !ok {
		return &PairAdapterDoesNotExistError{Adapter: far.Name}
	}
	p.Data = xorStream(ciphertext, farKey)
	p.Secured = true
	w.Emit(ClassicalDataReceived, pair, LevelInfo, map[string]any{
		"packet_id": p.ID,
		"from":      a.Name,
		"data":      string(p.Data),
	})
	return nil
}
