// Package com ties the bit codec, signal packer, PDU buffer store and
// group controller together and exposes the scheduler entry points in
// scheduler.go.
package com

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/ecucore/gocom/internal/bitcodec"
	"github.com/ecucore/gocom/internal/group"
	"github.com/ecucore/gocom/internal/metrics"
	"github.com/ecucore/gocom/internal/pdu"
	"github.com/ecucore/gocom/internal/pdur"
	"github.com/ecucore/gocom/internal/signal"
)

// Config is the whole, immutable, build-time COM configuration. Signal/PDU
// configuration loading is out of scope here; the integrator builds this
// and hands it to New.
type Config struct {
	Signals   []*signal.Config
	PDUs      []*pdu.Config
	NumGroups int
}

// Com is the runtime COM instance: configuration plus the mutable group
// status and PDU timers. Carried as an explicit handle instead of the
// original's process-wide globals.
type Com struct {
	// large fields first
	cfg     *Config
	store   *pdu.Store
	groups  *group.Controller
	pdur    pdur.Transmitter
	metrics *metrics.Metrics
	logger  *zap.SugaredLogger
}

func New(cfg *Config, transmitter pdur.Transmitter, m *metrics.Metrics, logger *zap.SugaredLogger) *Com {
	return &Com{
		cfg:     cfg,
		store:   pdu.NewStore(cfg.PDUs),
		pdur:    transmitter,
		metrics: m,
		logger:  logger,
	}
}

// Init zeroes the group-enabled bitmap; no PDU buffer is touched until a
// StartGroup with initialize=true runs.
func (c *Com) Init() {
	c.groups = group.New(c.cfg.NumGroups)
}

// StartGroup enables groupID and arms the timer of every PDU it gates,
// from FirstTimeout/FirstTime if configured, else from the steady-state
// Timeout/CycleTime.
func (c *Com) StartGroup(groupID int, initialize bool) bool {
	if !c.groups.Start(groupID) {
		return false
	}
	mask := uint32(1) << uint(groupID)
	for i, p := range c.cfg.PDUs {
		if p.GroupMask&mask == 0 {
			continue
		}
		if initialize {
			c.store.InitGroupStart(i)
		}
		switch p.Direction {
		case pdu.Rx:
			if p.Rx.FirstTimeoutTicks > 0 {
				c.store.Runtimes[i].Timer = p.Rx.FirstTimeoutTicks
			} else {
				c.store.Runtimes[i].Timer = p.Rx.TimeoutTicks
			}
		case pdu.Tx:
			if p.Tx.FirstTimeTicks > 0 {
				c.store.Runtimes[i].Timer = p.Tx.FirstTimeTicks
			} else {
				c.store.Runtimes[i].Timer = p.Tx.CycleTicks
			}
		}
	}
	if c.logger != nil {
		c.logger.Infof("I-PDU group %d started (initialize=%v)", groupID, initialize)
	}
	return true
}

// StopGroup disables groupID. PDUs still gated by another enabled group
// keep running.
func (c *Com) StopGroup(groupID int) bool {
	ok := c.groups.Stop(groupID)
	if ok && c.logger != nil {
		c.logger.Infof("I-PDU group %d stopped", groupID)
	}
	return ok
}

func (c *Com) SendSignal(signalID int, src any) bool {
	if signalID < 0 || signalID >= len(c.cfg.Signals) {
		return false
	}
	if isNilPointer(src) {
		return false
	}
	return c.cfg.Signals[signalID].Pack(src)
}

func (c *Com) ReceiveSignal(signalID int, dst any) bool {
	if signalID < 0 || signalID >= len(c.cfg.Signals) {
		return false
	}
	if isNilPointer(dst) {
		return false
	}
	return c.cfg.Signals[signalID].Unpack(dst)
}

func (c *Com) SendSignalGroup(groupSignalID int) bool {
	if groupSignalID < 0 || groupSignalID >= len(c.cfg.Signals) {
		return false
	}
	return c.cfg.Signals[groupSignalID].SendGroup()
}

func (c *Com) ReceiveSignalGroup(groupSignalID int) bool {
	if groupSignalID < 0 || groupSignalID >= len(c.cfg.Signals) {
		return false
	}
	return c.cfg.Signals[groupSignalID].ReceiveGroup()
}

// SignalSnapshot is a read-only decoded view of one signal.
type SignalSnapshot struct {
	Name  string
	Kind  signal.Kind
	Value uint32
	Ok    bool
}

// Snapshot decodes every non-group scalar signal without consuming update
// bits, so it stays safe to call repeatedly (e.g. from cmd/comd's dump).
func (c *Com) Snapshot() []SignalSnapshot {
	out := make([]SignalSnapshot, 0, len(c.cfg.Signals))
	for _, s := range c.cfg.Signals {
		if s.IsGroupSignal || s.Kind == signal.UInt8N || s.Endianness == signal.Opaque {
			continue
		}
		snap := SignalSnapshot{Name: s.Name, Kind: s.Kind}
		switch s.Endianness {
		case signal.Big:
			snap.Value = peekBigEndian(s)
			snap.Ok = true
		case signal.Little:
			snap.Value = peekLittleEndian(s)
			snap.Ok = true
		}
		out = append(out, snap)
	}
	return out
}

func peekBigEndian(s *signal.Config) uint32 {
	return bitcodec.GetBigEndian(s.Buffer, s.BitPosition, s.BitSize)
}

func peekLittleEndian(s *signal.Config) uint32 {
	return bitcodec.GetLittleEndian(s.Buffer, s.BitPosition, s.BitSize)
}

func isNilPointer(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}
