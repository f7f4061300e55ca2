package sim

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNode_AttachTypeSafety(t *testing.T) {
	allTypes := []NodeType{
		NodeInternetExchange, NodeClassicalHost, NodeClassicalRouter,
		NodeC2QConverter, NodeQ2CConverter,
		NodeQuantumHost, NodeQuantumRepeater, NodeQuantumAdapter,
	}
	allowed := map[NodeType]NetworkType{
		NodeInternetExchange: ClassicalNetwork,
		NodeClassicalHost:    ClassicalNetwork,
		NodeClassicalRouter:  ClassicalNetwork,
		NodeQuantumHost:      QuantumNetwork,
		NodeQuantumRepeater:  QuantumNetwork,
	}

	for _, nt := range []NetworkType{ClassicalNetwork, QuantumNetwork} {
		for _, typ := range allTypes {
			t.Run(fmt.Sprintf("%s_on_%s", typ, nt), func(t *testing.T) {
				// GIVEN a network of type nt
				w := NewWorld("w", [2]float64{})
				z := w.AddZone("z", ZoneResidential, [2]float64{}, [2]float64{})
				net := mustNetwork(t, w, z, "n", nt)

				// WHEN a node of type typ is attached
				_, err := w.AddNode(net, NodeSpec{Name: "x", Type: typ})

				// THEN only compatible pairs succeed
				if want, ok := allowed[typ]; ok && want == nt {
					assert.NoError(t, err)
					return
				}
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnsupportedNetwork)
				var une *UnsupportedNetworkError
				require.True(t, errors.As(err, &une))
				assert.Equal(t, "n", une.Network)
				assert.Equal(t, "x", une.Node)
				assert.Equal(t, CategoryConfiguration, Categorize(err))
			})
		}
	}
}

func TestAddNode_DuplicateName_Rejected(t *testing.T) {
	w := NewWorld("w", [2]float64{})
	z := w.AddZone("z", ZoneResidential, [2]float64{}, [2]float64{})
	net := mustNetwork(t, w, z, "n", ClassicalNetwork)
	mustNode(t, w, net, "A", NodeClassicalHost)

	_, err := w.AddNode(net, NodeSpec{Name: "A", Type: NodeClassicalRouter})

	assert.ErrorIs(t, err, ErrDuplicateNode)
}

func TestAddBridge_SidesMustMatchNetworkTypes(t *testing.T) {
	// GIVEN classical and quantum networks with one host each
	w := NewWorld("w", [2]float64{})
	z := w.AddZone("z", ZoneResidential, [2]float64{}, [2]float64{})
	lan := mustNetwork(t, w, z, "lan", ClassicalNetwork)
	qnet := mustNetwork(t, w, z, "qnet", QuantumNetwork)
	mustNode(t, w, lan, "H", NodeClassicalHost)
	mustNode(t, w, qnet, "Q", NodeQuantumHost)

	// WHEN the sides are swapped
	_, err := w.AddBridge(z, BridgeSpec{
		Name: "AD", Type: NodeQuantumAdapter,
		ClassicalHost: "H", ClassicalNetwork: "qnet",
		QuantumHost: "Q", QuantumNetwork: "lan",
	})

	// THEN the bridge is rejected
	assert.ErrorIs(t, err, ErrUnsupportedNetwork)

	// WHEN a side names a missing host
	_, err = w.AddBridge(z, BridgeSpec{
		Name: "AD", Type: NodeQuantumAdapter,
		ClassicalHost: "nope", ClassicalNetwork: "lan",
		QuantumHost: "Q", QuantumNetwork: "qnet",
	})

	// THEN the missing name is reported
	var nf *NodesNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, []string{"nope"}, nf.Names)
}

func TestAddBridge_RecordedOnZoneAndLinkedToClassicalHost(t *testing.T) {
	bw := newBridgeWorld(t, NodeQuantumAdapter, NodeQuantumAdapter, true)

	z := bw.w.Zone(0)
	assert.Equal(t, []NodeID{bw.x1, bw.x2}, z.Adapters)
	h1 := bw.w.Node(bw.h1).(*ClassicalHost)
	assert.NotNil(t, h1.Link(bw.x1))
	assert.Equal(t, bw.x1, h1.DefaultGateway())
}

func TestAddBridge_EachVariantOwnsItsBridgeState(t *testing.T) {
	tests := []struct {
		name   string
		t1, t2 NodeType
	}{
		{"adapters", NodeQuantumAdapter, NodeQuantumAdapter},
		{"converters", NodeC2QConverter, NodeQ2CConverter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bw := newBridgeWorld(t, tt.t1, tt.t2, true)

			b1 := bw.w.Node(bw.x1).(bridgeNode).bridge()
			b2 := bw.w.Node(bw.x2).(bridgeNode).bridge()

			assert.NotSame(t, b1, b2)
			assert.Equal(t, bw.h1, b1.ClassicalHost)
			assert.Equal(t, bw.qh1, b1.QuantumHost)
			assert.Equal(t, bw.h2, b2.ClassicalHost)
			assert.Equal(t, bw.qh2, b2.QuantumHost)
			assert.Equal(t, bw.x2, b1.Pair())
			assert.Equal(t, bw.x1, b2.Pair())
		})
	}
}

func TestFinalize_PairsAdaptersSharingQuantumNetwork(t *testing.T) {
	bw := newBridgeWorld(t, NodeQuantumAdapter, NodeQuantumAdapter, true)

	a1 := bw.w.Node(bw.x1).(*QuantumAdapter)
	a2 := bw.w.Node(bw.x2).(*QuantumAdapter)
	p1, err := a1.PairAdapter()
	require.NoError(t, err)
	p2, err := a2.PairAdapter()
	require.NoError(t, err)
	assert.Equal(t, bw.x2, p1)
	assert.Equal(t, bw.x1, p2)
}

func TestFinalize_ThirdAdapterOnNetwork_Fails(t *testing.T) {
	// GIVEN three adapters on the same quantum network
	w := NewWorld("w", [2]float64{})
	z := w.AddZone("z", ZoneResidential, [2]float64{}, [2]float64{})
	lan := mustNetwork(t, w, z, "lan", ClassicalNetwork)
	qnet := mustNetwork(t, w, z, "qnet", QuantumNetwork)
	for i := 0; i < 3; i++ {
		mustNode(t, w, lan, fmt.Sprintf("H%d", i), NodeClassicalHost)
		mustNode(t, w, qnet, fmt.Sprintf("Q%d", i), NodeQuantumHost)
		_, err := w.AddBridge(z, BridgeSpec{
			Name: fmt.Sprintf("AD%d", i), Type: NodeQuantumAdapter,
			ClassicalHost: fmt.Sprintf("H%d", i), ClassicalNetwork: "lan",
			QuantumHost: fmt.Sprintf("Q%d", i), QuantumNetwork: "qnet",
		})
		require.NoError(t, err)
	}

	// WHEN the world is finalized
	err := w.Finalize()

	// THEN pairing exclusivity is enforced
	assert.ErrorIs(t, err, ErrPairAdapterAlreadyExists)
}

func TestSetPair_Exclusive(t *testing.T) {
	a := &QuantumAdapter{NodeBase: NodeBase{ID: 0, Name: "a"}, bridgeState: bridgeState{pair: NoNode}}
	b := &QuantumAdapter{NodeBase: NodeBase{ID: 1, Name: "b"}, bridgeState: bridgeState{pair: NoNode}}
	c := &QuantumAdapter{NodeBase: NodeBase{ID: 2, Name: "c"}, bridgeState: bridgeState{pair: NoNode}}

	// GIVEN an unpaired adapter
	_, err := a.PairAdapter()
	assert.ErrorIs(t, err, ErrPairAdapterDoesNotExist)

	// WHEN it is paired once
	require.NoError(t, a.SetPair(b))

	// THEN a second pairing on either side fails and leaves the pair intact
	err = c.SetPair(a)
	var exists *PairAdapterAlreadyExistsError
	require.True(t, errors.As(err, &exists))
	assert.Equal(t, "a", exists.Adapter)
	assert.Equal(t, "b", exists.Pair)
	assert.ErrorIs(t, b.SetPair(c), ErrPairAdapterAlreadyExists)
	assert.Equal(t, NodeID(1), a.Pair())
	assert.Equal(t, NoNode, c.Pair())
}

func TestFinalize_ExplicitGateway(t *testing.T) {
	// GIVEN a host linked to two routers that names the second as gateway
	w := NewWorld("w", [2]float64{})
	z := w.AddZone("z", ZoneResidential, [2]float64{}, [2]float64{})
	lan := mustNetwork(t, w, z, "lan", ClassicalNetwork)
	_, err := w.AddNode(lan, NodeSpec{Name: "H", Type: NodeClassicalHost, Gateway: "R2"})
	require.NoError(t, err)
	mustNode(t, w, lan, "R1", NodeClassicalRouter)
	r2 := mustNode(t, w, lan, "R2", NodeClassicalRouter)
	mustConnect(t, w, lan, ConnectionSpec{From: "H", To: "R1"})
	mustConnect(t, w, lan, ConnectionSpec{From: "H", To: "R2"})

	// WHEN finalized
	require.NoError(t, w.Finalize())

	// THEN the explicit gateway wins over the lowest-ID neighbor
	h := w.Node(0).(*ClassicalHost)
	assert.Equal(t, r2, h.DefaultGateway())
}

func TestFinalize_UnknownGateway_Fails(t *testing.T) {
	w := NewWorld("w", [2]float64{})
	z := w.AddZone("z", ZoneResidential, [2]float64{}, [2]float64{})
	lan := mustNetwork(t, w, z, "lan", ClassicalNetwork)
	_, err := w.AddNode(lan, NodeSpec{Name: "H", Type: NodeClassicalHost, Gateway: "ghost"})
	require.NoError(t, err)

	assert.ErrorIs(t, w.Finalize(), ErrNodesNotFound)
}

func TestConnect_UnknownEndpoints_NamesAllMissing(t *testing.T) {
	w := NewWorld("w", [2]float64{})
	z := w.AddZone("z", ZoneResidential, [2]float64{}, [2]float64{})
	lan := mustNetwork(t, w, z, "lan", ClassicalNetwork)

	_, err := w.Connect(lan, ConnectionSpec{From: "X", To: "Y"})

	var nf *NodesNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, []string{"X", "Y"}, nf.Names)
}

func TestConnect_LossPerKmOutOfRange_Rejected(t *testing.T) {
	for _, loss := range []float64{-0.1, 1.5} {
		w := NewWorld("w", [2]float64{})
		z := w.AddZone("z", ZoneSecure, [2]float64{}, [2]float64{})
		qnet := mustNetwork(t, w, z, "qnet", QuantumNetwork)
		mustNode(t, w, qnet, "Q1", NodeQuantumHost)
		mustNode(t, w, qnet, "Q2", NodeQuantumHost)

		_, err := w.Connect(qnet, ConnectionSpec{From: "Q1", To: "Q2", Length: 1000, LossPerKm: loss})

		require.Error(t, err, "loss_per_km %g", loss)
		assert.Contains(t, err.Error(), "loss_per_km")
		assert.Empty(t, w.Channels())
	}
}

func TestChannelBetween(t *testing.T) {
	qp := newQuantumPairWorld(t, 1000, 0, NoiseDefault)

	ch, err := qp.w.ChannelBetween(qp.q2, qp.q1)
	require.NoError(t, err)
	assert.Equal(t, qp.ch, ch)
	assert.Equal(t, "Q1 <~~~> Q2", qp.w.Channel(ch).String())

	_, err = qp.w.ChannelBetween(qp.q1, qp.q1)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestWorld_Lifecycle(t *testing.T) {
	w := NewWorld("w", [2]float64{}, WithRunID("run-1"), WithSeed(9))

	assert.Equal(t, "run-1", w.RunID)
	assert.Equal(t, int64(9), w.Seed())
	assert.False(t, w.IsRunning())
	w.SetRunning(true)
	assert.True(t, w.IsRunning())
	w.Stop()
	assert.False(t, w.IsRunning())

	w.SetClock(10)
	assert.Equal(t, int64(11), w.AdvanceClock(1))
	assert.Nil(t, w.Node(NoNode))
}

func TestNewWorld_GeneratesRunID(t *testing.T) {
	w1 := NewWorld("w", [2]float64{})
	w2 := NewWorld("w", [2]float64{})

	assert.NotEmpty(t, w1.RunID)
	assert.NotEqual(t, w1.RunID, w2.RunID)
}
