package router

import (
	"fmt"
	"strings"

	"remindbot/internal/transport"
	"remindbot/pkg/tgui"

	tele "gopkg.in/telebot.v4"
)

const welcomeText = `
Hi! I'm your Reminder Bot. Here's what I can do:

📌 *How to use me:*
1. Send me a task you want to be reminded about.
2. Choose when you'd like the reminder (preset options or custom time).
3. Receive the reminder when the time comes!

🛠 *Commands:*
/start - Show this welcome message
/list - Show all your pending reminders
/delete - Delete a reminder from your list
/cancel - Cancel the current reminder setup

You can also type 'cancel' anytime to stop the current setup.

Ready? Send me what you'd like to be reminded about!
`

const listTimeFormat = "2006-01-02 15:04"

func (r *Router) handleMessage(msg transport.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "/") {
		r.handleCommand(msg.ChatID, text)
		return
	}

	if strings.EqualFold(text, "cancel") {
		r.dlg.CancelSetup(msg.ChatID)
		return
	}

	r.dlg.HandleText(msg.ChatID, text)
}

// handleCommand dispatches /-prefixed messages. Commands act independently
// of the dialogue state; only /start and /cancel touch it. Unknown commands
// are ignored.
func (r *Router) handleCommand(chatID int64, text string) {
	word := strings.Fields(text)[0]
	word = strings.TrimPrefix(word, "/")
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}

	switch strings.ToLower(word) {
	case "start":
		r.SendText(chatID, welcomeText, &transport.SendOptions{ParseMode: "Markdown"})
		r.dlg.Reset(chatID)
	case "list":
		r.sendList(chatID)
	case "delete":
		r.sendDeleteMenu(chatID)
	case "cancel":
		r.dlg.CancelSetup(chatID)
	}
}

func (r *Router) sendList(chatID int64) {
	list := r.sched.List(chatID)
	if len(list) == 0 {
		r.SendText(chatID, "You have no pending reminders.", nil)
		return
	}

	var b strings.Builder
	b.WriteString("📝 Your pending reminders:\n")
	for i, rem := range list {
		fmt.Fprintf(&b, "%d. %q at %s\n", i+1, rem.Task, rem.RemindAt.In(r.loc).Format(listTimeFormat))
	}
	r.SendText(chatID, b.String(), nil)
}

func (r *Router) sendDeleteMenu(chatID int64) {
	list := r.sched.List(chatID)
	if len(list) == 0 {
		r.SendText(chatID, "You have no reminders to delete.", nil)
		return
	}

	buttons := make([]tele.Btn, 0, len(list))
	for i, rem := range list {
		label := fmt.Sprintf("%d. %s at %s", i+1, rem.Task, rem.RemindAt.In(r.loc).Format(listTimeFormat))
		buttons = append(buttons, tgui.Btn(label, fmt.Sprintf("%s%d", prefixDelete, i)))
	}
	r.SendText(chatID, "Select a reminder to delete:",
		&transport.SendOptions{ReplyMarkup: tgui.Grid2(buttons)})
}

// followUpMenu is the post-delivery prompt keyboard. Payloads carry the
// synthetic reminder id, not the task text, so identical tasks stay
// unambiguous.
func followUpMenu(id string) *transport.SendOptions {
	kb := tgui.NewInline().
		Row(tgui.Btn("✅ Mark as done", prefixDone+id), tgui.Btn("⏰ Remind me later", prefixRemindLater+id))
	return &transport.SendOptions{ReplyMarkup: kb.Markup()}
}
