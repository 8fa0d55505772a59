package websocket

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"courtside/internal/usecase"
	"courtside/pkg/logger"
)

// Manager tracks every live connection by user and runs a sync session for
// each of them.
type Manager struct {
	sync *usecase.SyncService

	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
}

func NewManager(sync *usecase.SyncService) *Manager {
	return &Manager{
		sync:       sync,
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Start runs the manager's main loop in a goroutine until ctx ends.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		defer close(m.done)
		for {
			select {
			case client := <-m.register:
				m.mutex.Lock()
				if m.clients[client.UserID] == nil {
					m.clients[client.UserID] = make(map[*Client]struct{})
				}
				m.clients[client.UserID][client] = struct{}{}
				m.mutex.Unlock()
				logger.Debug("Client registered: %s", client.UserID)

			case client := <-m.unregister:
				m.mutex.Lock()
				if conns, ok := m.clients[client.UserID]; ok {
					delete(conns, client)
					if len(conns) == 0 {
						delete(m.clients, client.UserID)
					}
				}
				m.mutex.Unlock()
				logger.Debug("Client unregistered: %s", client.UserID)

			case <-ctx.Done():
				return
			}
		}
	}()
}

// Count returns the number of open connections.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	n := 0
	for _, conns := range m.clients {
		n += len(conns)
	}
	return n
}

// Serve runs the sync session of sess over conn and blocks until either side
// ends it. The connection is closed on return.
func (m *Manager) Serve(sess *usecase.Session, conn *websocket.Conn) error {
	client := newClient(sess, conn)

	select {
	case m.register <- client:
	case <-m.done:
		conn.Close()
		return nil
	}
	defer func() {
		select {
		case m.unregister <- client:
		case <-m.done:
		}
	}()

	ctx, cancel := context.WithCancel(sess.Context())
	commands := make(chan usecase.Command, 16)

	var pumps sync.WaitGroup
	pumps.Add(2)
	go func() {
		defer pumps.Done()
		client.writePump(ctx)
	}()
	go func() {
		defer pumps.Done()
		// A dead reader means a dead peer, so the session ends with it.
		defer cancel()
		client.readPump(ctx, commands)
	}()

	err := m.sync.Run(sess, commands, client)
	if err != nil {
		sess.Log.Warn("Sync session ended: %v", err)
	}
	cancel()
	pumps.Wait()
	return err
}
