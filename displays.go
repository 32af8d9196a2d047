package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/backsoul/trivia/pkg/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// exitGrace lets queued exit messages reach the displays before the hub stops.
const exitGrace = 250 * time.Millisecond

// displays turns window lifecycle requests into hub messages and a process shutdown.
type displays struct {
	hub      *websocket.Hub
	clock    clockwork.Clock
	shutdown context.CancelFunc
	once     sync.Once
}

func newDisplays(hub *websocket.Hub, clock clockwork.Clock, shutdown context.CancelFunc) *displays {
	return &displays{hub: hub, clock: clock, shutdown: shutdown}
}

func (d *displays) Open(ctx context.Context, role websocket.Role) error {
	return d.hub.SendTo(ctx, role, websocket.TypeOpenWindow, nil)
}

func (d *displays) Close(ctx context.Context, role websocket.Role) error {
	return d.hub.SendTo(ctx, role, websocket.TypeCloseWindow, nil)
}

// Exit tells every display to close and stops the server shortly after.
func (d *displays) Exit(ctx context.Context) {
	d.once.Do(func() {
		for _, role := range []websocket.Role{websocket.RolePlayer, websocket.RoleAdmin} {
			if err := d.hub.SendTo(ctx, role, websocket.TypeExit, nil); err != nil && !errors.Is(err, websocket.ErrNoDisplay) {
				log.Warn().Err(err).Str("role", string(role)).Msg("⚠️ could not notify display of exit")
			}
		}
		d.clock.AfterFunc(exitGrace, d.shutdown)
	})
}
