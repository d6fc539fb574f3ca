package dialog

// Step is a position in the guided reminder-setup dialogue.
type Step string

const (
	StepAwaitingTask       Step = "awaiting_task"
	StepAwaitingTime       Step = "awaiting_time"
	StepCustomChoice       Step = "custom_choice"
	StepCustomTimeToday    Step = "custom_time_today"
	StepCustomTimeTomorrow Step = "custom_time_tomorrow"
	StepCustomTimeFull     Step = "custom_time_full"
	StepCompleted          Step = "completed"
)

// State is one chat's dialogue record. Exactly one exists per chat; it is
// replaced wholesale on reset, never merged.
type State struct {
	Step Step
	Task string
}

// expectsText reports whether the step consumes free text (as opposed to
// being button-only).
func (s Step) expectsText() bool {
	switch s {
	case StepAwaitingTask, StepCustomTimeToday, StepCustomTimeTomorrow, StepCustomTimeFull:
		return true
	}
	return false
}
