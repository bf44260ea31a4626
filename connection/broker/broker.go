/*
The broker keeps track of all channels subscribed to a given connection and
fans non-correlated inbound envelopes out to them. When the connection shuts
down for good, the broker closes every subscribed channel with the terminal
reason.
*/
package broker

import (
	"sync"

	"github.com/vcentea/linkedin-gateway-sub000/connection/wire"
)

type IChannel interface {
	Receive(envelope wire.Envelope)
	Close(reason error)
}

type Broker struct {
	lock     sync.RWMutex
	channels map[string]IChannel
}

func New() *Broker {
	return &Broker{
		channels: make(map[string]IChannel),
	}
}

func (b *Broker) Subscribe(id string, channel IChannel) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.channels[id] = channel
}

func (b *Broker) Unsubscribe(id string) {
	b.lock.Lock()
	defer b.lock.Unlock()

	delete(b.channels, id)
}

func (b *Broker) NumChannels() int {
	b.lock.RLock()
	defer b.lock.RUnlock()

	return len(b.channels)
}

// Narrowcast delivers an envelope to every subscribed channel
func (b *Broker) Narrowcast(envelope wire.Envelope) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	for _, channel := range b.channels {
		channel.Receive(envelope)
	}
}

// Close tells every subscribed channel the connection is gone for good and
// drops the subscriptions
func (b *Broker) Close(reason error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	for id, channel := range b.channels {
		channel.Close(reason)
		delete(b.channels, id)
	}
}
