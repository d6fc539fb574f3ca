package dialog

import (
	"fmt"
	"time"

	"remindbot/internal/reminder"
	"remindbot/internal/transport"
	"remindbot/pkg/logx"
)

// Gateway is the outbound side the dialogue writes to. Implementations must
// not block; the router's outbox enqueues and returns.
type Gateway interface {
	SendText(chatID int64, text string, opt *transport.SendOptions)
	AnswerCallback(callbackID, text string)
}

// Scheduler is the slice of the reminder engine the dialogue needs.
type Scheduler interface {
	Schedule(chatID int64, task string, at time.Time) (reminder.Reminder, error)
}

// Machine drives the per-chat reminder-setup dialogue.
//
// All methods are called from the router's event loop only, so the state
// map needs no locking; chats are isolated by key.
type Machine struct {
	log   logx.Logger
	gw    Gateway
	sched Scheduler
	loc   *time.Location

	now func() time.Time

	states map[int64]*State
}

func NewMachine(gw Gateway, sched Scheduler, loc *time.Location, log logx.Logger) *Machine {
	if loc == nil {
		loc = time.Local
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Machine{
		log:    log,
		gw:     gw,
		sched:  sched,
		loc:    loc,
		now:    time.Now,
		states: map[int64]*State{},
	}
}

// StateOf returns the chat's current dialogue state.
func (m *Machine) StateOf(chatID int64) (State, bool) {
	st, ok := m.states[chatID]
	if !ok {
		return State{}, false
	}
	return *st, true
}

// Reset replaces the chat's state with a fresh awaiting_task record.
func (m *Machine) Reset(chatID int64) {
	m.states[chatID] = &State{Step: StepAwaitingTask}
}

// CancelSetup aborts an in-progress setup. Trivial states (no setup begun,
// or the previous one already completed) only get an acknowledgement.
func (m *Machine) CancelSetup(chatID int64) {
	st, ok := m.states[chatID]
	if !ok || st.Step == StepAwaitingTask || st.Step == StepCompleted {
		m.gw.SendText(chatID, msgNothingToCancel, nil)
		return
	}
	m.Reset(chatID)
	m.gw.SendText(chatID, msgCanceled, nil)
}

// ReenterTime re-opens the time-selection step for a known task, used by
// the post-fire "remind me later" action.
func (m *Machine) ReenterTime(chatID int64, task string) {
	m.states[chatID] = &State{Step: StepAwaitingTime, Task: task}
	m.gw.SendText(chatID, fmt.Sprintf("When should I remind you again for %q?", task), timeMenu())
}

// HandleText feeds one inbound text message into the machine.
func (m *Machine) HandleText(chatID int64, text string) {
	st, ok := m.states[chatID]
	if !ok || st.Step == StepCompleted {
		st = &State{Step: StepAwaitingTask}
		m.states[chatID] = st
	}

	if !st.Step.expectsText() {
		m.gw.SendText(chatID, msgDidntUnderstand, nil)
		return
	}

	switch st.Step {
	case StepAwaitingTask:
		st.Task = text
		st.Step = StepAwaitingTime
		m.gw.SendText(chatID, msgWhenRemind, timeMenu())

	case StepCustomTimeToday:
		hour, minute, err := parseClock(text)
		if err != nil {
			m.gw.SendText(chatID, msgBadClockToday, nil)
			return
		}
		at := clockOn(m.now(), hour, minute, m.loc)
		if !at.After(m.now()) {
			m.gw.SendText(chatID, msgPassedToday, nil)
			return
		}
		m.schedule(st, chatID, at,
			fmt.Sprintf("✅ I will remind you to %q today at %s.", st.Task, at.Format("15:04")))

	case StepCustomTimeTomorrow:
		hour, minute, err := parseClock(text)
		if err != nil {
			m.gw.SendText(chatID, msgBadClockTomorr, nil)
			return
		}
		at := clockOn(m.now().Add(24*time.Hour), hour, minute, m.loc)
		m.schedule(st, chatID, at,
			fmt.Sprintf("✅ I will remind you to %q tomorrow at %s.", st.Task, at.Format("15:04")))

	case StepCustomTimeFull:
		at, err := parseFull(text, m.loc)
		if err != nil {
			m.gw.SendText(chatID, msgBadFullDate, nil)
			return
		}
		m.schedule(st, chatID, at,
			fmt.Sprintf("✅ I will remind you to %q on %s.", st.Task, at.Format("2006-01-02 15:04")))
	}
}

// HandleOption feeds one time-selection button press into the machine.
func (m *Machine) HandleOption(chatID int64, callbackID, token string) {
	st, ok := m.states[chatID]
	if !ok || (st.Step != StepAwaitingTime && st.Step != StepCustomChoice) {
		m.gw.AnswerCallback(callbackID, msgNoActiveTask)
		return
	}

	switch token {
	case OptOneHour:
		at := m.now().Add(time.Hour)
		m.schedule(st, chatID, at, fmt.Sprintf("✅ I will remind you to %q in 1 hour.", st.Task))
		m.gw.AnswerCallback(callbackID, "")

	case OptThreeHours:
		at := m.now().Add(3 * time.Hour)
		m.schedule(st, chatID, at, fmt.Sprintf("✅ I will remind you to %q in 3 hours.", st.Task))
		m.gw.AnswerCallback(callbackID, "")

	case OptTomorrow:
		at := clockOn(m.now().Add(24*time.Hour), 9, 0, m.loc)
		m.schedule(st, chatID, at, fmt.Sprintf("✅ I will remind you to %q tomorrow at 9:00.", st.Task))
		m.gw.AnswerCallback(callbackID, "")

	case OptCustom:
		st.Step = StepCustomChoice
		m.gw.SendText(chatID, msgCustomChoice, customMenu())
		m.gw.AnswerCallback(callbackID, "")

	case OptCustomToday:
		st.Step = StepCustomTimeToday
		m.gw.SendText(chatID, msgEnterToday, markdown())
		m.gw.AnswerCallback(callbackID, "")

	case OptCustomTomorrow:
		st.Step = StepCustomTimeTomorrow
		m.gw.SendText(chatID, msgEnterTomorrow, markdown())
		m.gw.AnswerCallback(callbackID, "")

	case OptCustomFull:
		st.Step = StepCustomTimeFull
		m.gw.SendText(chatID, msgEnterFull, nil)
		m.gw.AnswerCallback(callbackID, "")

	default:
		m.gw.AnswerCallback(callbackID, msgUnknownOption)
	}
}

// schedule asks the engine for a reminder and moves the dialogue to
// completed on success. A past target time reports to the user and leaves
// the step unchanged so the input can be retried.
func (m *Machine) schedule(st *State, chatID int64, at time.Time, confirm string) {
	if _, err := m.sched.Schedule(chatID, st.Task, at); err != nil {
		m.log.Debug("schedule rejected", logx.Int64("chat", chatID), logx.Err(err))
		m.gw.SendText(chatID, msgPastTime, nil)
		return
	}
	m.gw.SendText(chatID, confirm, nil)
	st.Step = StepCompleted
}
