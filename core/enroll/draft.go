package enroll

import (
	"github.com/trezcool/tutorhub/core"
	"github.com/trezcool/tutorhub/core/catalog"
	"github.com/trezcool/tutorhub/core/pricing"
)

const (
	deliveryOnline = pricing.Online
	deliveryOnsite = pricing.Onsite
)

// Draft is the in-progress, never persisted selection of one student.
type Draft struct {
	Course         string `json:"course"` // course id
	Location       string `json:"location"`
	DeliveryMethod string `json:"delivery_method"`
	OfficeID       string `json:"office_id"`
	SelectedTutor  string `json:"selected_tutor"` // tutor_course_id of the chosen offering
	PaymentPlan    string `json:"payment_plan"`
	TermsAccepted  bool   `json:"terms_accepted"`
}

// DraftUpdate carries the fields a client changes; nil fields are left untouched.
type DraftUpdate struct {
	Course         *string `json:"course"`
	Location       *string `json:"location"`
	DeliveryMethod *string `json:"delivery_method" validate:"omitempty,delivery_method"`
	OfficeID       *string `json:"office_id"`
	SelectedTutor  *string `json:"selected_tutor"`
	PaymentPlan    *string `json:"payment_plan" validate:"omitempty,payment_plan"`
	TermsAccepted  *bool   `json:"terms_accepted"`
}

func fieldErr(field, msg string) error {
	return core.NewValidationError(nil, core.FieldError{Field: field, Error: msg})
}

// SetCourse changes the course; a different course drops the selected tutor.
func (w *Wizard) SetCourse(id string) error {
	id = core.CleanString(id)
	if id != "" {
		if _, ok := catalog.FindCourse(w.ref.Courses, id); !ok {
			return fieldErr("course", "unknown course")
		}
	}
	if id != w.draft.Course {
		w.draft.SelectedTutor = ""
	}
	w.draft.Course = id
	return nil
}

// SetLocation changes the location. Going online clears the onsite delivery and the office.
func (w *Wizard) SetLocation(name string) error {
	name = core.CleanString(name)
	if name != "" && !catalog.IsOnline(name) {
		loc, ok := catalog.FindLocation(w.ref.Locations, name)
		if !ok {
			return fieldErr("location", "unknown location")
		}
		name = loc.Name
	}
	w.draft.Location = name
	if catalog.IsOnline(name) {
		if w.draft.DeliveryMethod == deliveryOnsite {
			w.draft.DeliveryMethod = ""
		}
		w.draft.OfficeID = ""
	}
	if w.draft.SelectedTutor != "" && !w.isCandidate(w.draft.SelectedTutor) {
		w.draft.SelectedTutor = ""
	}
	return nil
}

// SetDeliveryMethod refuses onsite delivery at the online location; online delivery drops the office.
func (w *Wizard) SetDeliveryMethod(method string) error {
	method = core.CleanString(method, true /* lower */)
	if method != "" && !pricing.ValidDeliveryMethod(method) {
		return fieldErr("delivery_method", "invalid delivery method")
	}
	if method == deliveryOnsite && catalog.IsOnline(w.draft.Location) {
		return fieldErr("delivery_method", "onsite delivery is not available for online courses")
	}
	w.draft.DeliveryMethod = method
	if method != deliveryOnsite {
		w.draft.OfficeID = ""
	}
	return nil
}

func (w *Wizard) SetOffice(id string) error {
	id = core.CleanString(id)
	if id == "" {
		w.draft.OfficeID = ""
		return nil
	}
	if w.draft.DeliveryMethod != deliveryOnsite {
		return fieldErr("office_id", "an office can only be chosen for onsite delivery")
	}
	if _, ok := catalog.FindOffice(w.ref.Offices, id); !ok {
		return fieldErr("office_id", "unknown office")
	}
	w.draft.OfficeID = id
	return nil
}

// SetTutor selects an offering among the current candidates.
func (w *Wizard) SetTutor(tutorCourseID string) error {
	tutorCourseID = core.CleanString(tutorCourseID)
	if tutorCourseID != "" && !w.isCandidate(tutorCourseID) {
		return fieldErr("selected_tutor", "this tutor does not offer the selected course at the selected location")
	}
	w.draft.SelectedTutor = tutorCourseID
	return nil
}

func (w *Wizard) SetPaymentPlan(plan string) error {
	plan = core.CleanString(plan, true /* lower */)
	if plan != "" && !pricing.ValidPaymentPlan(plan) {
		return fieldErr("payment_plan", "invalid payment plan")
	}
	w.draft.PaymentPlan = plan
	return nil
}

func (w *Wizard) SetTermsAccepted(accepted bool) {
	w.draft.TermsAccepted = accepted
}

// Apply runs the setters of the fields present in u, in step order. Fields of a step the wizard
// has not reached are refused. On error the draft is left unchanged. A change that breaks the
// gate of an earlier step moves the wizard back to that step.
func (w *Wizard) Apply(u DraftUpdate) error {
	if err := w.checkReached(u); err != nil {
		return err
	}
	saved := w.draft
	if err := w.apply(u); err != nil {
		w.draft = saved
		return err
	}
	w.rewind()
	return nil
}

func (w *Wizard) checkReached(u DraftUpdate) error {
	fields := []struct {
		set  bool
		name string
		step Step
	}{
		{u.DeliveryMethod != nil, "delivery_method", StepDeliveryMethod},
		{u.OfficeID != nil, "office_id", StepDeliveryMethod},
		{u.SelectedTutor != nil, "selected_tutor", StepTutorSelect},
		{u.PaymentPlan != nil, "payment_plan", StepPayment},
		{u.TermsAccepted != nil, "terms_accepted", StepPayment},
	}
	for _, f := range fields {
		if f.set && f.step > w.step {
			return fieldErr(f.name, "please complete the previous steps first")
		}
	}
	return nil
}

// rewind moves the wizard back to the first step whose forward gate the draft no longer passes.
func (w *Wizard) rewind() {
	for s := StepCourseLocation; s < w.step; s++ {
		if t, ok := transitions[s][Next]; ok && t.gate != nil && t.gate(w.draft) != nil {
			w.step = s
			return
		}
	}
}

func (w *Wizard) apply(u DraftUpdate) error {
	if u.Course != nil {
		if err := w.SetCourse(*u.Course); err != nil {
			return err
		}
	}
	if u.Location != nil {
		if err := w.SetLocation(*u.Location); err != nil {
			return err
		}
	}
	if u.DeliveryMethod != nil {
		if err := w.SetDeliveryMethod(*u.DeliveryMethod); err != nil {
			return err
		}
	}
	if u.OfficeID != nil {
		if err := w.SetOffice(*u.OfficeID); err != nil {
			return err
		}
	}
	if u.SelectedTutor != nil {
		if err := w.SetTutor(*u.SelectedTutor); err != nil {
			return err
		}
	}
	if u.PaymentPlan != nil {
		if err := w.SetPaymentPlan(*u.PaymentPlan); err != nil {
			return err
		}
	}
	if u.TermsAccepted != nil {
		w.SetTermsAccepted(*u.TermsAccepted)
	}
	return nil
}
