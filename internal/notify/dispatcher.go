// Package notify delivers detections to the configured sinks: online
// admins, every player, the console, and the daily log file.
package notify

import (
	"fmt"
	"log"
	"time"

	"github.com/beholder/backend/internal/config"
	"github.com/beholder/backend/internal/game"
)

const (
	// Prefix starts every message the watcher sends.
	Prefix = "Beholder: "
	// CheatText floats over the offender for admins.
	CheatText = "Looks like someone is cheating"
)

// Messenger is the part of the host the dispatcher talks to.
type Messenger interface {
	Player(index int) (game.Player, bool)
	Players() []game.Player
	Broadcast(msg string, c game.Color) error
	SendInfo(player int, msg string) error
	SendCombatText(player int, text string, c game.Color, x, y float32) error
}

// Rules supplies the current notification toggles.
type Rules interface {
	Current() *config.Plugin
}

// Dispatcher fans a detection out to every enabled sink. A failing sink is
// logged and skipped; it never affects the other sinks or the caller.
type Dispatcher struct {
	rules   Rules
	host    Messenger
	console *Console
	file    *FileLog
	color   game.Color
	health  *healthTracker
}

// NewDispatcher wires the sinks. color is the host's broadcast color, used
// for the global broadcast and the console line. file may be nil when file
// logging is never wanted.
func NewDispatcher(rules Rules, host Messenger, console *Console, file *FileLog, color game.Color) *Dispatcher {
	return &Dispatcher{
		rules:   rules,
		host:    host,
		console: console,
		file:    file,
		color:   color,
		health:  newHealthTracker(),
	}
}

// Health reports the delivery record of every sink used so far.
func (d *Dispatcher) Health() []SinkHealth {
	return d.health.snapshot()
}

// Notify sends message about the player in slot offender.
func (d *Dispatcher) Notify(offender int, message string) {
	cfg := d.rules.Current()
	msg := Prefix + message

	if cfg.GlobalBroadcast() {
		d.try("broadcast", func() error {
			return d.host.Broadcast(msg, d.color)
		})
	} else {
		if cfg.NotifyToOnlineAdmin {
			d.notifyAdmins(cfg, offender, msg)
		}
		if cfg.NotifyAllPlayer {
			d.try("all players", func() error {
				return d.host.SendInfo(game.Everyone, msg)
			})
		}
		if cfg.NotifyToConsoleLogs {
			d.try("console", func() error {
				if d.console == nil {
					return fmt.Errorf("no console configured")
				}
				return d.console.Write(msg, d.color)
			})
		}
	}

	if cfg.SaveToLogFile {
		d.try("file", func() error {
			if d.file == nil {
				return fmt.Errorf("no log file configured")
			}
			return d.file.Append(msg)
		})
	}
}

func (d *Dispatcher) notifyAdmins(cfg *config.Plugin, offender int, msg string) {
	var admins []game.Player
	d.try("roster", func() error {
		for _, p := range d.host.Players() {
			if p.Index >= 0 && cfg.IsAdminGroup(p.Group) {
				admins = append(admins, p)
			}
		}
		return nil
	})
	if len(admins) == 0 {
		return
	}

	target, found := d.host.Player(offender)
	for _, a := range admins {
		d.try("admins", func() error {
			if err := d.host.SendInfo(a.Index, msg); err != nil {
				return fmt.Errorf("%s: %w", a.Name, err)
			}
			return nil
		})
		if found {
			d.try("combat text", func() error {
				if err := d.host.SendCombatText(a.Index, CheatText, game.Yellow, target.X, target.Y); err != nil {
					return fmt.Errorf("%s: %w", a.Name, err)
				}
				return nil
			})
		}
	}
}

// try runs one sink, turning errors and panics into a log line and a
// health record.
func (d *Dispatcher) try(sink string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[notify] %s sink panicked: %v", sink, r)
			d.health.recordFailure(sink, fmt.Errorf("panic: %v", r), time.Now())
		}
	}()
	if err := fn(); err != nil {
		log.Printf("[notify] %s sink failed: %v", sink, err)
		d.health.recordFailure(sink, err, time.Now())
		return
	}
	d.health.recordSuccess(sink)
}
