package com

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecucore/gocom/internal/metrics"
	"github.com/ecucore/gocom/internal/pdu"
	"github.com/ecucore/gocom/internal/pdur"
	"github.com/ecucore/gocom/internal/signal"
)

// buildSimple returns a two-group config: group 0 enables a TX PDU with one
// U8 signal, group 1 enables an RX PDU with one U8 signal. Neither signal
// has an update bit.
func buildSimple() (*Config, *signal.Config, *signal.Config) {
	txBuf := make([]byte, 1)
	txSig := &signal.Config{
		Name: "TxCounter", Kind: signal.U8, Endianness: signal.Little,
		BitPosition: 0, BitSize: 8, Buffer: txBuf, Init: []byte{0}, UpdateBit: signal.NoUpdateBit,
	}
	txPdu := &pdu.Config{
		Name: "TxPdu", Buffer: txBuf, Length: 1, GroupMask: 1 << 0,
		Direction: pdu.Tx, Signals: []*signal.Config{txSig},
		Tx: &pdu.TxConfig{CycleTicks: 5, FirstTimeTicks: 2, TxPduID: 0},
	}

	rxBuf := make([]byte, 1)
	rxSig := &signal.Config{
		Name: "RxCounter", Kind: signal.U8, Endianness: signal.Little,
		BitPosition: 0, BitSize: 8, Buffer: rxBuf, Init: []byte{0}, UpdateBit: signal.NoUpdateBit,
	}
	rxPdu := &pdu.Config{
		Name: "RxPdu", Buffer: rxBuf, Length: 1, GroupMask: 1 << 1,
		Direction: pdu.Rx, Signals: []*signal.Config{rxSig},
		Rx: &pdu.RxConfig{TimeoutTicks: 4, FirstTimeoutTicks: 1},
	}

	cfg := &Config{
		Signals:   []*signal.Config{txSig, rxSig},
		PDUs:      []*pdu.Config{txPdu, rxPdu},
		NumGroups: 2,
	}
	return cfg, txSig, rxSig
}

func TestTxCycleHonesty(t *testing.T) {
	// cycle_ticks=5, first_time_ticks=2, group started at tick 0: transmits
	// at ticks 2, 7, 12, 17.
	cfg, _, _ := buildSimple()
	fake := &pdur.Fake{}
	c := New(cfg, fake, metrics.Noop(), nil)
	c.Init()
	require.True(t, c.StartGroup(0, true))

	var txTicks []int
	for tick := 1; tick <= 17; tick++ {
		before := len(fake.Sent)
		c.MainFunctionTx()
		if len(fake.Sent) > before {
			txTicks = append(txTicks, tick)
		}
	}

	assert.Equal(t, []int{2, 7, 12, 17}, txTicks)
}

func TestTxRetryPolicy(t *testing.T) {
	cfg, _, _ := buildSimple()
	fake := &pdur.Fake{FailNext: 1}
	c := New(cfg, fake, metrics.Noop(), nil)
	c.Init()
	require.True(t, c.StartGroup(0, true))

	var txTicks []int
	for tick := 1; tick <= 8; tick++ {
		before := len(fake.Sent)
		c.MainFunctionTx()
		if len(fake.Sent) > before {
			txTicks = append(txTicks, tick)
		}
	}

	// Tick 2 fails (not recorded as Sent), tick 3 retries and succeeds,
	// then the normal 5-tick cycle resumes: next at tick 8.
	assert.Equal(t, []int{3, 8}, txTicks)
}

func TestRxTimeoutFiresOnceThenLatches(t *testing.T) {
	cfg, _, _ := buildSimple()
	fake := &pdur.Fake{}
	c := New(cfg, fake, metrics.Noop(), nil)
	c.Init()
	require.True(t, c.StartGroup(1, true))

	fired := 0
	cfg.PDUs[1].Rx.OnTimeout = func() { fired++ }

	for tick := 1; tick <= 10; tick++ {
		c.MainFunctionRx()
	}

	assert.Equal(t, 1, fired, "timeout must latch at zero and fire exactly once")
}

func TestRxIndicationRearmsTimerAndUpdatesBuffer(t *testing.T) {
	cfg, _, _ := buildSimple()
	fake := &pdur.Fake{}
	c := New(cfg, fake, metrics.Noop(), nil)
	c.Init()
	require.True(t, c.StartGroup(1, true))

	notified := false
	cfg.PDUs[1].Rx.OnRx = func() { notified = true }

	for i := 0; i < 3; i++ {
		c.MainFunctionRx()
	}
	c.RxIndication(1, pdur.Frame{Data: []byte{0x42}})

	assert.True(t, notified)
	assert.Equal(t, byte(0x42), cfg.PDUs[1].Buffer[0])
	assert.Equal(t, 4, c.store.Runtimes[1].Timer, "timer re-armed to full timeout")
}

func TestRxIndicationDropsShortFrame(t *testing.T) {
	cfg, _, _ := buildSimple()
	fake := &pdur.Fake{}
	c := New(cfg, fake, metrics.Noop(), nil)
	c.Init()
	require.True(t, c.StartGroup(1, true))

	cfg.PDUs[1].Buffer[0] = 0xAA
	c.RxIndication(1, pdur.Frame{Data: nil})

	assert.Equal(t, byte(0xAA), cfg.PDUs[1].Buffer[0], "short frame must be dropped, not copied")
}

func TestGroupGatingBlocksTxAndRx(t *testing.T) {
	cfg, _, _ := buildSimple()
	fake := &pdur.Fake{}
	c := New(cfg, fake, metrics.Noop(), nil)
	c.Init()
	// Neither group started.
	for tick := 0; tick < 20; tick++ {
		c.MainFunctionTx()
	}
	assert.Empty(t, fake.Sent, "disabled group must never transmit")

	cfg.PDUs[1].Buffer[0] = 0x00
	c.RxIndication(1, pdur.Frame{Data: []byte{0x99}})
	assert.Equal(t, byte(0x00), cfg.PDUs[1].Buffer[0], "disabled group must ignore RxIndication")
}

func TestSendReceiveSignalUpdateBitCycle(t *testing.T) {
	// byte 0: S1 value, byte 1: S2 value, byte 2: update-bit flags.
	buf := make([]byte, 3)
	s1 := &signal.Config{Name: "S1", Kind: signal.U8, Endianness: signal.Little, BitPosition: 0, BitSize: 8, Buffer: buf, Init: []byte{0}, UpdateBit: 16}
	s2 := &signal.Config{Name: "S2", Kind: signal.U8, Endianness: signal.Little, BitPosition: 8, BitSize: 8, Buffer: buf, Init: []byte{0}, UpdateBit: 17}
	p := &pdu.Config{Name: "Pdu", Buffer: buf, Length: 3, GroupMask: 1, Direction: pdu.Tx,
		Signals: []*signal.Config{s1, s2}, Tx: &pdu.TxConfig{CycleTicks: 1, TxPduID: 0}}

	cfg := &Config{Signals: []*signal.Config{s1, s2}, PDUs: []*pdu.Config{p}, NumGroups: 1}
	fake := &pdur.Fake{}
	c := New(cfg, fake, metrics.Noop(), nil)
	c.Init()
	require.True(t, c.StartGroup(0, true))

	var v1, v2 uint8 = 1, 2
	require.True(t, c.SendSignal(0, &v1))
	require.True(t, c.SendSignal(1, &v2))

	c.MainFunctionTx() // timer was armed to CycleTicks=1, fires this tick

	require.Len(t, fake.Sent, 1)
	assert.False(t, buf[2]&0x01 != 0, "update bit for s1 cleared after successful tx")
	assert.False(t, buf[2]&0x02 != 0, "update bit for s2 cleared after successful tx")

	var got uint8
	assert.False(t, c.ReceiveSignal(0, &got), "receive gated until the next send")
}

func TestSendSignalRejectsOutOfRangeAndNilPointer(t *testing.T) {
	cfg, _, _ := buildSimple()
	c := New(cfg, &pdur.Fake{}, metrics.Noop(), nil)
	c.Init()

	assert.False(t, c.SendSignal(99, new(uint8)))
	var p *uint8
	assert.False(t, c.SendSignal(0, p))
}

func TestTriggerTransmitPullMode(t *testing.T) {
	cfg, txSig, _ := buildSimple()
	c := New(cfg, &pdur.Fake{}, metrics.Noop(), nil)
	c.Init()
	require.True(t, c.StartGroup(0, false))

	var v uint8 = 7
	txSig.Pack(&v)

	out := pdur.Frame{Data: make([]byte, 0, 4)}
	require.True(t, c.TriggerTransmit(0, &out))
	assert.Equal(t, []byte{7}, out.Data)

	small := pdur.Frame{Data: make([]byte, 0, 0)}
	assert.False(t, c.TriggerTransmit(0, &small))
}

func TestTriggerIpduSendMatchesTimerDrivenPolicy(t *testing.T) {
	cfg, _, _ := buildSimple()
	fake := &pdur.Fake{FailNext: 1}
	c := New(cfg, fake, metrics.Noop(), nil)
	c.Init()
	require.True(t, c.StartGroup(0, false))

	require.True(t, c.TriggerIpduSend(0))
	assert.Empty(t, fake.Sent, "first attempt fails")
	assert.Equal(t, 1, c.store.Runtimes[0].Timer, "retry armed for next tick")

	require.True(t, c.TriggerIpduSend(0))
	assert.Len(t, fake.Sent, 1)
	assert.Equal(t, 5, c.store.Runtimes[0].Timer, "cycle timer re-armed on success")
}
