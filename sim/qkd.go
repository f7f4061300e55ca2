package sim

import "github.com/sirupsen/logrus"

// KeyExchange summarizes one BB84 run between two paired adapters.
type KeyExchange struct {
	Sent     int
	Received int
	Sifted   int
	// QBER is the error rate observed on the sacrificed sample of the sifted
	// bits. Zero when the sample is empty.
	QBER float64
	// KeyBits is the number of sifted bits kept after sampling.
	KeyBits int
	Key     []byte
}

// EstablishKey runs BB84 from adapter to its pair over the direct channel
// between their quantum hosts and stores the resulting key on both sides,
// replacing any earlier key. QKD_INITIATED and QKD_COMPLETED bracket the
// exchange at adapter.
func (w *World) EstablishKey(adapter NodeID) (KeyExchange, error) {
	a, ok := w.Node(adapter).(*QuantumAdapter)
	if !ok {
		return KeyExchange{}, &NodesNotFoundError{Names: []string{w.nodeName(adapter)}}
	}
	pairID, err := a.PairAdapter()
	if err != nil {
		return KeyExchange{}, err
	}
	b := w.Node(pairID).(*QuantumAdapter)

	ch, err := w.ChannelBetween(a.QuantumHost, b.QuantumHost)
	if err != nil {
		return KeyExchange{}, &QuantumChannelDoesNotExistError{
			Host: w.nodeName(a.QuantumHost),
			Peer: w.nodeName(b.QuantumHost),
		}
	}
	receiver := w.Node(b.QuantumHost).(*QuantumHost)

	first, second := a, b
	if b.ID < a.ID {
		first, second = b, a
	}
	first.keyMu.Lock()
	defer first.keyMu.Unlock()
	second.keyMu.Lock()
	defer second.keyMu.Unlock()

	w.Emit(QKDInitiated, a.ID, LevelInfo, map[string]any{"peer": b.Name})
	kx := KeyExchange{Sent: w.keyLength}
	var senderBits, receiverBits []int
	var lastQubit int64
	for i := 0; i < w.keyLength; i++ {
		bit := a.rng.Intn(2)
		basis := Basis(a.rng.Intn(2))
		q := w.NewQubit(bit, basis)
		lastQubit = q.ID

		tx, err := w.TransmitQubit(ch, q, a.QuantumHost)
		if err != nil {
			return KeyExchange{}, err
		}
		if tx.Status == Lost {
			continue
		}
		kx.Received++
		// The measurement consumes the qubit.
		arrived, ok := receiver.Memory().Take(q.ID)
		if !ok {
			arrived = tx.Qubit
		}
		measureBasis := Basis(b.rng.Intn(2))
		outcome := arrived.Measure(measureBasis, b.rng)
		if measureBasis != basis {
			continue
		}
		senderBits = append(senderBits, bit)
		receiverBits = append(receiverBits, outcome)
	}

	kx.Sifted = len(senderBits)
	if kx.Sifted == 0 {
		c := w.Channel(ch)
		return kx, &QubitLossError{Channel: c.label, ChannelID: ch, QubitID: lastQubit}
	}

	sample := kx.Sifted / 4
	if sample > 0 {
		mismatches := 0
		for i := 0; i < sample; i++ {
			if senderBits[i] != receiverBits[i] {
				mismatches++
			}
		}
		kx.QBER = float64(mismatches) / float64(sample)
	}
	kx.KeyBits = kx.Sifted - sample
	kx.Key = packBits(senderBits[sample:])

	a.keys[b.ID] = kx.Key
	b.keys[a.ID] = append([]byte(nil), kx.Key...)
	w.Emit(QKDCompleted, a.ID, LevelInfo, map[string]any{
		"peer":       b.Name,
		"sent":       kx.Sent,
		"received":   kx.Received,
		"sifted":     kx.Sifted,
		"key_length": kx.KeyBits,
		"qber":       kx.QBER,
	})
	logrus.Infof("qkd %s <-> %s: sent %d, received %d, sifted %d, qber %.3f",
		a.Name, b.Name, kx.Sent, kx.Received, kx.Sifted, kx.QBER)
	return kx, nil
}

// packBits packs bits MSB first. A trailing partial byte is zero padded.
func packBits(bits []int) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b != 0 {
			out[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return out
}

// xorStream applies key cyclically to data.
func xorStream(data, key []byte) []byte {
	out := make([]byte, len(data))
	if len(key) == 0 {
		copy(out, data)
		return out
	}
	for i := range data {
		out[i] = data[i] ^ key[i%len(key)]
	}
	return out
}
