package panel

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"oracle-panel/internal/display"
)

const (
	pingEvery    = time.Second
	pongDeadline = 5 * time.Second
	writeTimeout = time.Second
)

// keeper tracks websocket clients and fans display updates out to them.
type keeper struct {
	mx     sync.Mutex
	active map[*websocket.Conn]struct{}
	out    chan display.Update
	logger zerolog.Logger
}

func newKeeper(buffer int, logger zerolog.Logger) *keeper {
	if buffer <= 0 {
		buffer = 256
	}
	return &keeper{
		active: make(map[*websocket.Conn]struct{}),
		out:    make(chan display.Update, buffer),
		logger: logger,
	}
}

// push queues u for broadcast. It never blocks; updates are dropped when the
// queue is full.
func (k *keeper) push(u display.Update) {
	select {
	case k.out <- u:
	default:
		k.logger.Warn().Str("type", u.Type).Str("field", u.Field).Msg("websocket queue full, dropping update")
	}
}

func (k *keeper) addConn(conn *websocket.Conn) {
	k.mx.Lock()
	defer k.mx.Unlock()
	k.active[conn] = struct{}{}
}

func (k *keeper) close(conn *websocket.Conn) {
	k.mx.Lock()
	defer k.mx.Unlock()
	_ = conn.Close()
	delete(k.active, conn)
}

func (k *keeper) count() int {
	k.mx.Lock()
	defer k.mx.Unlock()
	return len(k.active)
}

// run broadcasts queued updates until ctx is done.
func (k *keeper) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			k.closeAll()
			return ctx.Err()
		case u := <-k.out:
			k.broadcast(u)
		}
	}
}

func (k *keeper) broadcast(u display.Update) {
	js, err := json.Marshal(u)
	if err != nil {
		k.logger.Error().Err(err).Msg("marshal update")
		return
	}

	k.mx.Lock()
	defer k.mx.Unlock()
	for conn := range k.active {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, js); err != nil {
			k.logger.Debug().Err(err).Msg("dropping websocket client")
			_ = conn.Close()
			delete(k.active, conn)
		}
	}
}

func (k *keeper) closeAll() {
	k.mx.Lock()
	defer k.mx.Unlock()
	for conn := range k.active {
		_ = conn.Close()
		delete(k.active, conn)
	}
}

// keep pings conn and reads until the client goes away. Clients only listen;
// inbound text frames are ignored.
func (k *keeper) keep(conn *websocket.Conn) {
	pinger := time.NewTicker(pingEvery)
	defer pinger.Stop()
	defer k.close(conn)

	var aliveMu sync.Mutex
	lastAlive := time.Now()
	touch := func() {
		aliveMu.Lock()
		lastAlive = time.Now()
		aliveMu.Unlock()
	}

	ponger := conn.PongHandler()
	conn.SetPongHandler(func(appData string) error {
		touch()
		return ponger(appData)
	})

	read := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				read <- err
				return
			}
			touch()
		}
	}()

	for {
		select {
		case <-pinger.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
			aliveMu.Lock()
			stale := time.Since(lastAlive) > pongDeadline
			aliveMu.Unlock()
			if stale {
				return
			}
		case <-read:
			return
		}
	}
}
