package router

import (
	"context"
	"time"

	"remindbot/internal/dialog"
	"remindbot/internal/reminder"
	"remindbot/internal/transport"
	"remindbot/pkg/logx"
)

const sendTimeout = 10 * time.Second

// Router is the single event loop. It consumes inbound updates and timer
// fire events from their channels one at a time, so per-chat dialogue state
// and the reminder lists are only ever mutated from this goroutine.
type Router struct {
	log   logx.Logger
	gw    transport.Gateway
	sched *reminder.Scheduler
	dlg   *dialog.Machine
	loc   *time.Location

	updates <-chan transport.Update
	out     chan outItem
}

type outKind int

const (
	outSend outKind = iota
	outAck
)

type outItem struct {
	kind       outKind
	chatID     int64
	callbackID string
	text       string
	opt        *transport.SendOptions
}

func New(gw transport.Gateway, sched *reminder.Scheduler, updates <-chan transport.Update, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Router{
		log:     log,
		gw:      gw,
		sched:   sched,
		loc:     sched.Location(),
		updates: updates,
		out:     make(chan outItem, 256),
	}
	r.dlg = dialog.NewMachine(r, sched, r.loc, log.With(logx.String("comp", "dialog")))
	return r
}

// Dialogue exposes the machine for wiring and tests.
func (r *Router) Dialogue() *dialog.Machine { return r.dlg }

// Run processes events until ctx is canceled. Outbound sends go through the
// outbox worker so transport latency never stalls the loop.
func (r *Router) Run(ctx context.Context) error {
	go r.outboxWorker(ctx)

	r.log.Info("event loop started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info("event loop stopped")
			return nil
		case up, ok := <-r.updates:
			if !ok {
				r.log.Info("event loop stopped (updates channel closed)")
				return nil
			}
			r.route(up)
		case ev := <-r.sched.Fires():
			r.handleFire(ev)
		}
	}
}

func (r *Router) route(up transport.Update) {
	switch up.Kind {
	case transport.UpdateMessage:
		if up.Message != nil {
			r.handleMessage(*up.Message)
		}
	case transport.UpdateCallback:
		if up.Callback != nil {
			r.handleCallback(*up.Callback)
		}
	}
}

// handleFire delivers a fired reminder and the done / remind-later prompt.
// A false result means the reminder was canceled before the event was
// consumed; nothing is sent.
func (r *Router) handleFire(ev reminder.FireEvent) {
	rem, ok := r.sched.Fire(ev)
	if !ok {
		r.log.Debug("fire event for canceled reminder ignored", logx.String("id", ev.ID))
		return
	}
	r.SendText(rem.ChatID, "🔔 Reminder: "+rem.Task, nil)
	r.SendText(rem.ChatID, "Did you complete this task?", followUpMenu(rem.ID))
}

// ---- dialog.Gateway (non-blocking outbox) ----

func (r *Router) SendText(chatID int64, text string, opt *transport.SendOptions) {
	r.enqueue(outItem{kind: outSend, chatID: chatID, text: text, opt: opt})
}

func (r *Router) AnswerCallback(callbackID, text string) {
	r.enqueue(outItem{kind: outAck, callbackID: callbackID, text: text})
}

func (r *Router) enqueue(it outItem) {
	select {
	case r.out <- it:
	default:
		r.log.Warn("outbox full; dropping outbound message", logx.Int64("chat", it.chatID))
	}
}

func (r *Router) outboxWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case it := <-r.out:
			opCtx, cancel := context.WithTimeout(ctx, sendTimeout)
			var err error
			switch it.kind {
			case outSend:
				err = r.gw.SendText(opCtx, it.chatID, it.text, it.opt)
			case outAck:
				err = r.gw.AnswerCallback(opCtx, it.callbackID, it.text)
			}
			cancel()
			if err != nil {
				r.log.Warn("outbound send failed", logx.Int64("chat", it.chatID), logx.Err(err))
			}
		}
	}
}
