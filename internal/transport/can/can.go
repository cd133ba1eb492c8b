// Package can binds the COM core's pdur.Transmitter collaborator interface
// onto a real SocketCAN bus, the production counterpart to pdur.Fake.
package can

import (
	"fmt"

	brutellacan "github.com/brutella/can"
	"go.uber.org/zap"

	"github.com/ecucore/gocom/internal/pdur"
)

// Bus adapts a brutella/can bus into a pdur.Transmitter. Every configured
// I-PDU needs a CAN identifier; idFor supplies it since the COM core has
// no notion of bus addressing.
type Bus struct {
	bus    *brutellacan.Bus
	idFor  func(pduID int) (uint32, bool)
	logger *zap.SugaredLogger
}

// Open binds to the named SocketCAN interface (e.g. "can0", "vcan0").
// ConnectAndPublish blocks, so run it in its own goroutine.
func Open(iface string, idFor func(pduID int) (uint32, bool), logger *zap.SugaredLogger) (*Bus, error) {
	bus, err := brutellacan.NewBusForInterfaceWithName(iface)
	if err != nil {
		return nil, fmt.Errorf("opening CAN interface %s: %w", iface, err)
	}
	return &Bus{bus: bus, idFor: idFor, logger: logger}, nil
}

func (b *Bus) ConnectAndPublish(onReceive func(id uint32, data []byte)) error {
	b.bus.SubscribeFunc(func(frm brutellacan.Frame) {
		onReceive(frm.ID, frm.Data[:frm.Length])
	})
	return b.bus.ConnectAndPublish()
}

func (b *Bus) Close() error {
	return b.bus.Disconnect()
}

func (b *Bus) Transmit(pduID int, frame pdur.Frame) bool {
	id, ok := b.idFor(pduID)
	if !ok {
		if b.logger != nil {
			b.logger.Warnf("no CAN ID mapped for PDU %d", pduID)
		}
		return false
	}
	if len(frame.Data) > 8 {
		if b.logger != nil {
			b.logger.Warnf("CAN frame payload for PDU %d too long: %d bytes", pduID, len(frame.Data))
		}
		return false
	}

	var data [8]byte
	copy(data[:], frame.Data)

	err := b.bus.Publish(brutellacan.Frame{
		ID:     id,
		Length: uint8(len(frame.Data)),
		Data:   data,
	})
	if err != nil {
		if b.logger != nil {
			b.logger.Warnf("CAN publish of PDU %d on ID %#x failed: %v", pduID, id, err)
		}
		return false
	}
	return true
}
