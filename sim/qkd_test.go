package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstablishKey_SharedOnBothSides(t *testing.T) {
	// GIVEN paired adapters over a lossless, noiseless channel
	bw := newBridgeWorld(t, NodeQuantumAdapter, NodeQuantumAdapter, true, WithQKDKeyLength(64))

	// WHEN a key is established
	kx, err := bw.w.EstablishKey(bw.x1)

	// THEN both adapters hold the same key and no error was observed
	require.NoError(t, err)
	assert.Equal(t, 64, kx.Sent)
	assert.Equal(t, 64, kx.Received)
	assert.Greater(t, kx.Sifted, 0)
	assert.LessOrEqual(t, kx.Sifted, kx.Received)
	assert.Equal(t, 0.0, kx.QBER)
	assert.Equal(t, kx.Sifted-kx.Sifted/4, kx.KeyBits)

	k1, ok := bw.w.Node(bw.x1).(*QuantumAdapter).Key(bw.x2)
	require.True(t, ok)
	k2, ok := bw.w.Node(bw.x2).(*QuantumAdapter).Key(bw.x1)
	require.True(t, ok)
	assert.Equal(t, k1, k2)
	assert.Equal(t, kx.Key, k1)

	// THEN every measured qubit was consumed from the receiver's memory
	assert.Equal(t, 0, bw.w.Node(bw.qh2).(*QuantumHost).Memory().Len())
}

func TestEstablishKey_SameSeed_SameKey(t *testing.T) {
	key := func() []byte {
		bw := newBridgeWorld(t, NodeQuantumAdapter, NodeQuantumAdapter, true)
		kx, err := bw.w.EstablishKey(bw.x1)
		require.NoError(t, err)
		return kx.Key
	}

	assert.Equal(t, key(), key())
}

func TestEstablishKey_AllQubitsLost(t *testing.T) {
	// GIVEN adapters whose quantum hosts share a fully lossy channel
	rec := &eventRecorder{}
	w := NewWorld("w", [2]float64{}, WithObserver(rec.observe), WithQKDKeyLength(16))
	z := w.AddZone("z", ZoneSecure, [2]float64{}, [2]float64{})
	lan := mustNetwork(t, w, z, "lan", ClassicalNetwork)
	qnet := mustNetwork(t, w, z, "qnet", QuantumNetwork)
	mustNode(t, w, lan, "H1", NodeClassicalHost)
	mustNode(t, w, lan, "H2", NodeClassicalHost)
	mustNode(t, w, qnet, "QH1", NodeQuantumHost)
	mustNode(t, w, qnet, "QH2", NodeQuantumHost)
	mustConnect(t, w, qnet, ConnectionSpec{From: "QH1", To: "QH2", Length: 2000, LossPerKm: 1})
	a1, err := w.AddBridge(z, BridgeSpec{Name: "AD1", Type: NodeQuantumAdapter,
		ClassicalHost: "H1", ClassicalNetwork: "lan", QuantumHost: "QH1", QuantumNetwork: "qnet"})
	require.NoError(t, err)
	_, err = w.AddBridge(z, BridgeSpec{Name: "AD2", Type: NodeQuantumAdapter,
		ClassicalHost: "H2", ClassicalNetwork: "lan", QuantumHost: "QH2", QuantumNetwork: "qnet"})
	require.NoError(t, err)
	require.NoError(t, w.Finalize())

	// WHEN a key is requested
	kx, err := w.EstablishKey(a1)

	// THEN the empty sifted key surfaces as qubit loss
	var loss *QubitLossError
	require.True(t, errors.As(err, &loss))
	assert.Equal(t, "QH1 <~~~> QH2", loss.Channel)
	assert.Equal(t, 0, kx.Received)
	assert.Len(t, rec.ofType(QubitLost), 16)
	_, ok := w.Node(a1).(*QuantumAdapter).Key(NodeID(5))
	assert.False(t, ok)
}

func TestEstablishKey_Unpaired(t *testing.T) {
	// GIVEN a single adapter on its quantum network
	w := NewWorld("w", [2]float64{})
	z := w.AddZone("z", ZoneSecure, [2]float64{}, [2]float64{})
	lan := mustNetwork(t, w, z, "lan", ClassicalNetwork)
	qnet := mustNetwork(t, w, z, "qnet", QuantumNetwork)
	mustNode(t, w, lan, "H", NodeClassicalHost)
	mustNode(t, w, qnet, "Q", NodeQuantumHost)
	ad, err := w.AddBridge(z, BridgeSpec{Name: "AD", Type: NodeQuantumAdapter,
		ClassicalHost: "H", ClassicalNetwork: "lan", QuantumHost: "Q", QuantumNetwork: "qnet"})
	require.NoError(t, err)
	require.NoError(t, w.Finalize())

	_, err = w.EstablishKey(ad)

	assert.ErrorIs(t, err, ErrPairAdapterDoesNotExist)
}

func TestXorStream_RoundTrip(t *testing.T) {
	key := []byte{0x5a, 0xc3}
	msg := []byte("quantum-safe payload")

	ct := xorStream(msg, key)

	assert.NotEqual(t, msg, ct)
	assert.Equal(t, msg, xorStream(ct, key))
	assert.Equal(t, msg, xorStream(msg, nil))
}

func TestPackBits(t *testing.T) {
	assert.Equal(t, []byte{0xa0}, packBits([]int{1, 0, 1}))
	assert.Equal(t, []byte{0xff, 0x80}, packBits([]int{1, 1, 1, 1, 1, 1, 1, 1, 1}))
	assert.Empty(t, packBits(nil))
}
