package dialog

import (
	"remindbot/internal/transport"
	"remindbot/pkg/tgui"
)

// Option tokens carried in time-selection callback payloads.
const (
	OptOneHour        = "1h"
	OptThreeHours     = "3h"
	OptTomorrow       = "tomorrow"
	OptCustom         = "custom"
	OptCustomToday    = "custom_today"
	OptCustomTomorrow = "custom_tomorrow"
	OptCustomFull     = "custom_full"
)

const (
	msgWhenRemind      = "When should I remind you?"
	msgCustomChoice    = "Choose custom time type:"
	msgPastTime        = "❌ That time is in the past!"
	msgPassedToday     = "That time already passed today. Please enter a future time."
	msgBadClockToday   = "Invalid time format. Please enter time as HH:MM (e.g., 14:30)"
	msgBadClockTomorr  = "Invalid time format. Please enter time as HH:MM (e.g., 09:00)"
	msgBadFullDate     = "Invalid date/time format. Please enter in YYYY-MM-DD HH:MM format."
	msgEnterToday      = "Please enter the time for *today* in HH:MM format:"
	msgEnterTomorrow   = "Please enter the time for *tomorrow* in HH:MM format:"
	msgEnterFull       = "Please enter the full date and time in YYYY-MM-DD HH:MM format:"
	msgCanceled        = "❌ Reminder setup canceled. Send me a new task whenever you want."
	msgNothingToCancel = "No active reminder setup to cancel."
	msgDidntUnderstand = "❓ Sorry, I didn't understand that. You can type 'cancel' to abort the current reminder setup."
	msgNoActiveTask    = "Please send me a task first."
	msgUnknownOption   = "Unknown option."
)

// timeMenu is the preset time-selection keyboard.
func timeMenu() *transport.SendOptions {
	kb := tgui.NewInline().
		Row(tgui.Btn("⏰ 1 hour", OptOneHour), tgui.Btn("⏳ 3 hours", OptThreeHours)).
		Row(tgui.Btn("🌅 Tomorrow at 9AM", OptTomorrow), tgui.Btn("📅 Enter custom time", OptCustom))
	return &transport.SendOptions{ReplyMarkup: kb.Markup()}
}

// customMenu is the custom-time sub-menu keyboard.
func customMenu() *transport.SendOptions {
	kb := tgui.NewInline().
		Row(tgui.Btn("Today at HH:MM", OptCustomToday)).
		Row(tgui.Btn("Tomorrow at HH:MM", OptCustomTomorrow)).
		Row(tgui.Btn("Enter full date & time", OptCustomFull))
	return &transport.SendOptions{ReplyMarkup: kb.Markup()}
}

func markdown() *transport.SendOptions {
	return &transport.SendOptions{ParseMode: "Markdown"}
}
