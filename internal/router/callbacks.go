package router

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"remindbot/internal/reminder"
	"remindbot/internal/transport"
	"remindbot/pkg/logx"
)

// Callback payload namespaces. delete_/done_/remind_later_ are routed
// regardless of the dialogue step; bare option tokens go to the machine.
const (
	prefixDelete      = "delete_"
	prefixDone        = "done_"
	prefixRemindLater = "remind_later_"
)

func (r *Router) handleCallback(cb transport.Callback) {
	data := cb.Data

	switch {
	case strings.HasPrefix(data, prefixDelete):
		r.handleDelete(cb, strings.TrimPrefix(data, prefixDelete))
	case strings.HasPrefix(data, prefixDone):
		r.handleDone(cb, strings.TrimPrefix(data, prefixDone))
	case strings.HasPrefix(data, prefixRemindLater):
		r.handleRemindLater(cb, strings.TrimPrefix(data, prefixRemindLater))
	default:
		r.dlg.HandleOption(cb.ChatID, cb.ID, data)
	}
}

func (r *Router) handleDelete(cb transport.Callback, raw string) {
	if len(r.sched.List(cb.ChatID)) == 0 {
		r.AnswerCallback(cb.ID, "No reminders to delete.")
		return
	}

	idx, err := strconv.Atoi(raw)
	if err != nil {
		r.AnswerCallback(cb.ID, "Invalid selection.")
		return
	}
	removed, err := r.sched.Cancel(cb.ChatID, idx)
	if err != nil {
		if !errors.Is(err, reminder.ErrIndexOutOfRange) {
			r.log.Warn("delete failed", logx.Int64("chat", cb.ChatID), logx.Err(err))
		}
		r.AnswerCallback(cb.ID, "Invalid selection.")
		return
	}

	r.AnswerCallback(cb.ID, fmt.Sprintf("Deleted reminder: %q", removed.Task))
	r.SendText(cb.ChatID, fmt.Sprintf("🗑️ Deleted reminder: %q", removed.Task), nil)
}

func (r *Router) handleDone(cb transport.Callback, id string) {
	rem, ok := r.sched.Fired(id)
	if !ok {
		r.AnswerCallback(cb.ID, "Reminder not found.")
		return
	}
	r.AnswerCallback(cb.ID, fmt.Sprintf("Marked %q as done.", rem.Task))
	r.SendText(cb.ChatID, fmt.Sprintf("✅ Great! Task %q marked as done.", rem.Task), nil)
}

func (r *Router) handleRemindLater(cb transport.Callback, id string) {
	rem, ok := r.sched.Fired(id)
	if !ok {
		r.AnswerCallback(cb.ID, "Reminder not found.")
		return
	}
	r.AnswerCallback(cb.ID, fmt.Sprintf("Let's reschedule the reminder for %q.", rem.Task))
	r.dlg.ReenterTime(cb.ChatID, rem.Task)
}
