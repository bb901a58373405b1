package enroll

import (
	"fmt"

	"github.com/trezcool/tutorhub/core"
)

type Step int

// Steps
const (
	StepCourseLocation Step = iota
	StepDeliveryMethod
	StepTutorSelect
	StepPayment
)

var stepNames = [...]string{"course_location", "delivery_method", "tutor_select", "payment"}

func (s Step) String() string {
	if s < StepCourseLocation || s > StepPayment {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

type Event int

// Events
const (
	Next Event = iota
	Back
)

func (e Event) String() string {
	if e == Back {
		return "back"
	}
	return "next"
}

// BlockedError is returned by a refused transition; the wizard stays where it was.
type BlockedError struct {
	Step   Step
	Notice *core.Notice
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("step %s blocked: %s", e.Step, e.Notice.Message)
}

func blocked(step Step, msg string) *BlockedError {
	return &BlockedError{Step: step, Notice: core.WarningNotice(msg)}
}

// gate checks a draft before leaving a step forward; nil means the transition is allowed.
type gate func(d Draft) *BlockedError

type transition struct {
	to   Step
	gate gate
}

// transitions is the wizard's (step, event) -> step table. Back never validates anything.
var transitions = map[Step]map[Event]transition{
	StepCourseLocation: {
		Next: {to: StepDeliveryMethod, gate: requireCourseLocation},
		Back: {to: StepCourseLocation},
	},
	StepDeliveryMethod: {
		Next: {to: StepTutorSelect, gate: requireDeliveryMethod},
		Back: {to: StepCourseLocation},
	},
	StepTutorSelect: {
		Next: {to: StepPayment, gate: requireTutor},
		Back: {to: StepDeliveryMethod},
	},
	StepPayment: {
		Back: {to: StepTutorSelect},
	},
}

func requireCourseLocation(d Draft) *BlockedError {
	if d.Course == "" || d.Location == "" {
		return blocked(StepCourseLocation, "Please select a course and a location.")
	}
	return nil
}

func requireDeliveryMethod(d Draft) *BlockedError {
	if d.DeliveryMethod == "" {
		return blocked(StepDeliveryMethod, "Please select a delivery method.")
	}
	if d.DeliveryMethod == deliveryOnsite && d.OfficeID == "" {
		return blocked(StepDeliveryMethod, "Please select an office for onsite delivery.")
	}
	return nil
}

func requireTutor(d Draft) *BlockedError {
	if d.SelectedTutor == "" {
		return blocked(StepTutorSelect, "Please select a tutor.")
	}
	return nil
}

// Transition returns the step reached from step on event, or a *BlockedError.
func Transition(step Step, event Event, d Draft) (Step, error) {
	t, ok := transitions[step][event]
	if !ok {
		if event == Next && step == StepPayment {
			return step, &BlockedError{Step: step, Notice: core.InfoNotice("Proceed to payment to complete your enrollment.")}
		}
		return step, &BlockedError{Step: step, Notice: core.WarningNotice("Invalid wizard step.")}
	}
	if t.gate != nil {
		if err := t.gate(d); err != nil {
			return step, err
		}
	}
	return t.to, nil
}
