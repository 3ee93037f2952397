package service

import (
	"sync"
)

const sseClientBuffer = 16

func NewSSEClientMap[T any]() *SSEClientMap[T] {
	return &SSEClientMap[T]{
		clients: make(map[int64]map[string]chan T),
	}
}

// SSEClientMap fans messages for one id out to every subscribed client.
type SSEClientMap[T any] struct {
	m       sync.Mutex
	clients map[int64]map[string]chan T
}

func (cm *SSEClientMap[T]) AddClient(id int64, uid string) <-chan T {
	cm.m.Lock()
	defer cm.m.Unlock()
	if cm.clients[id] == nil {
		cm.clients[id] = make(map[string]chan T)
	}
	ch := make(chan T, sseClientBuffer)
	cm.clients[id][uid] = ch
	return ch
}

func (cm *SSEClientMap[T]) RemoveClient(id int64, uid string) {
	cm.m.Lock()
	defer cm.m.Unlock()
	ch, ok := cm.clients[id][uid]
	if !ok {
		return
	}
	close(ch)
	delete(cm.clients[id], uid)
	if len(cm.clients[id]) == 0 {
		delete(cm.clients, id)
	}
}

// SendToClients never blocks: a client whose buffer is full misses the message.
func (cm *SSEClientMap[T]) SendToClients(id int64, message T) {
	cm.m.Lock()
	defer cm.m.Unlock()
	for _, ch := range cm.clients[id] {
		select {
		case ch <- message:
		default:
		}
	}
}

// CloseClients delivers last to every client of id and closes their channels.
// A full buffer loses its oldest message instead of last.
func (cm *SSEClientMap[T]) CloseClients(id int64, last T) {
	cm.m.Lock()
	defer cm.m.Unlock()
	for _, ch := range cm.clients[id] {
		select {
		case ch <- last:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- last
		}
		close(ch)
	}
	delete(cm.clients, id)
}

func (cm *SSEClientMap[T]) ClientCount(id int64) int {
	cm.m.Lock()
	defer cm.m.Unlock()
	return len(cm.clients[id])
}
