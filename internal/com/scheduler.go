package com

import (
	"github.com/ecucore/gocom/internal/pdu"
	"github.com/ecucore/gocom/internal/pdur"
)

// MainFunctionRx decrements every enabled RX PDU's timer and fires
// OnTimeout exactly once when it reaches zero; the timer then latches at
// zero until RxIndication re-arms it.
func (c *Com) MainFunctionRx() {
	for i, p := range c.cfg.PDUs {
		if p.Direction != pdu.Rx {
			continue
		}
		if !c.groups.Enabled(p.GroupMask) {
			continue
		}
		rt := &c.store.Runtimes[i]
		if rt.Timer <= 0 {
			continue
		}
		rt.Timer--
		if rt.Timer == 0 {
			if c.metrics != nil {
				c.metrics.RxTimeouts.WithLabelValues(p.Name).Inc()
			}
			if c.logger != nil {
				c.logger.Warnf("RX timeout on %s", p.Name)
			}
			if p.Rx.OnTimeout != nil {
				p.Rx.OnTimeout()
			}
		}
	}
}

func (c *Com) MainFunctionTx() {
	for i, p := range c.cfg.PDUs {
		if p.Direction != pdu.Tx {
			continue
		}
		if !c.groups.Enabled(p.GroupMask) {
			continue
		}
		rt := &c.store.Runtimes[i]
		if rt.Timer <= 0 {
			continue
		}
		rt.Timer--
		if rt.Timer == 0 {
			c.transmit(i, p)
		}
	}
}

// MainFunction runs rx then tx so a frame received this tick can never be
// clobbered by a same-tick TX decision that depended on it.
func (c *Com) MainFunction() {
	c.MainFunctionRx()
	c.MainFunctionTx()
}

func (c *Com) transmit(i int, p *pdu.Config) {
	if c.metrics != nil {
		c.metrics.TxAttempts.WithLabelValues(p.Name).Inc()
	}

	ok := c.pdur.Transmit(p.Tx.TxPduID, frameOf(p))
	rt := &c.store.Runtimes[i]
	if ok {
		rt.Timer = p.Tx.CycleTicks
		c.store.ClearUpdateBits(i)
		if c.metrics != nil {
			c.metrics.TxSuccess.WithLabelValues(p.Name).Inc()
		}
	} else {
		rt.Timer = 1
		if c.metrics != nil {
			c.metrics.TxRetries.WithLabelValues(p.Name).Inc()
		}
		if c.logger != nil {
			c.logger.Warnf("transmit of %s failed, retrying next tick", p.Name)
		}
	}
}

// RxIndication copies a frame into the PDU buffer and re-arms the RX
// timer. A frame shorter than the PDU's length is silently dropped.
func (c *Com) RxIndication(rxPduID int, frame pdur.Frame) {
	if rxPduID < 0 || rxPduID >= len(c.cfg.PDUs) {
		return
	}
	p := c.cfg.PDUs[rxPduID]
	if p.Direction != pdu.Rx || !c.groups.Enabled(p.GroupMask) {
		return
	}
	if len(frame.Data) < p.Length {
		return
	}
	copy(p.Buffer[:p.Length], frame.Data[:p.Length])
	c.store.Runtimes[rxPduID].Timer = p.Rx.TimeoutTicks

	if c.metrics != nil {
		c.metrics.RxIndications.WithLabelValues(p.Name).Inc()
	}
	if p.Rx.OnRx != nil {
		p.Rx.OnRx()
	}
}

// TxConfirmation never touches the cycle timer: the cycle runs open-loop
// relative to confirmations.
func (c *Com) TxConfirmation(txPduID int, result bool) {
	if txPduID < 0 || txPduID >= len(c.cfg.PDUs) {
		return
	}
	p := c.cfg.PDUs[txPduID]
	if p.Direction != pdu.Tx || !c.groups.Enabled(p.GroupMask) {
		return
	}
	if result {
		if p.Tx.OnTxConfirm != nil {
			p.Tx.OnTxConfirm()
		}
	} else {
		if p.Tx.OnTxError != nil {
			p.Tx.OnTxError()
		}
	}
}

func (c *Com) TriggerTransmit(pduID int, out *pdur.Frame) bool {
	if pduID < 0 || pduID >= len(c.cfg.PDUs) {
		return false
	}
	p := c.cfg.PDUs[pduID]
	if cap(out.Data) < p.Length {
		return false
	}
	out.Data = out.Data[:p.Length]
	copy(out.Data, p.Buffer[:p.Length])
	return true
}

// TriggerIpduSend is the explicit, CAN-only user-triggered TX: same
// re-arm/retry policy as MainFunctionTx.
func (c *Com) TriggerIpduSend(pduID int) bool {
	if pduID < 0 || pduID >= len(c.cfg.PDUs) {
		return false
	}
	p := c.cfg.PDUs[pduID]
	if p.Direction != pdu.Tx || !c.groups.Enabled(p.GroupMask) {
		return false
	}
	c.transmit(pduID, p)
	return true
}

func frameOf(p *pdu.Config) pdur.Frame {
	return pdur.Frame{Data: p.Buffer[:p.Length]}
}
