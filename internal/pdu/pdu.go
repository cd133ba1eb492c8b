// Package pdu owns the byte buffers of configured I-PDUs and the mutable
// per-PDU runtime state (RX/TX timers) that the scheduler drives.
package pdu

import (
	"github.com/ecucore/gocom/internal/bitcodec"
	"github.com/ecucore/gocom/internal/signal"
)

type Direction uint8

const (
	Rx Direction = iota
	Tx
	PassThrough
)

type RxConfig struct {
	TimeoutTicks      int
	FirstTimeoutTicks int
	OnRx              func()
	OnTimeout         func()
}

type TxConfig struct {
	CycleTicks     int
	FirstTimeTicks int
	TxPduID        int
	OnTxConfirm    func()
	OnTxError      func()
}

// Config is the immutable, build-time description of one I-PDU. Exactly
// one of Rx/Tx is non-nil unless Direction is PassThrough.
type Config struct {
	Name      string
	Buffer    []byte
	Length    int
	Signals   []*signal.Config
	GroupMask uint32
	Direction Direction
	Rx        *RxConfig
	Tx        *TxConfig
}

// Timer > 0 means waiting; the tick handler fires on the tick whose
// decrement brings it to 0. A Timer already at 0 is idle until re-armed.
type Runtime struct {
	Timer int
}

type Store struct {
	PDUs     []*Config
	Runtimes []Runtime
}

func NewStore(pdus []*Config) *Store {
	return &Store{
		PDUs:     pdus,
		Runtimes: make([]Runtime, len(pdus)),
	}
}

// InitGroupStart packs every signal in the PDU from its Init value. Bytes
// that no signal covers keep their current contents.
func (s *Store) InitGroupStart(idx int) {
	for _, sig := range s.PDUs[idx].Signals {
		sig.PackInit()
	}
}

func (s *Store) ClearUpdateBits(idx int) {
	for _, sig := range s.PDUs[idx].Signals {
		if sig.UpdateBit != signal.NoUpdateBit {
			bitcodec.BitClear(sig.Buffer, sig.UpdateBit)
		}
	}
}
