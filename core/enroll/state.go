package enroll

import (
	"sync"
	"time"

	"github.com/trezcool/tutorhub/core"
	"github.com/trezcool/tutorhub/core/catalog"
	"github.com/trezcool/tutorhub/core/pricing"
)

// ReferenceData is what the wizard offers to choose from.
type ReferenceData struct {
	Courses   []catalog.Course   `json:"courses"`
	Locations []catalog.Location `json:"locations"`
	Offerings []catalog.Offering `json:"offerings"`
	Offices   []catalog.Office   `json:"offices"`
}

func emptyReferenceData() ReferenceData {
	return ReferenceData{
		Courses:   make([]catalog.Course, 0),
		Locations: make([]catalog.Location, 0),
		Offerings: make([]catalog.Offering, 0),
		Offices:   make([]catalog.Office, 0),
	}
}

// Candidate is an offering the student may pick, priced for the chosen delivery method.
type Candidate struct {
	catalog.Offering
	AdjustedPrice int64   `json:"adjusted_price"`
	Rating        float64 `json:"rating"`
}

// Quote holds the values derived from the draft; it is recomputed on every read.
type Quote struct {
	Candidates        []Candidate `json:"candidates"`
	Offering          *Candidate  `json:"offering,omitempty"`
	FullAmount        int64       `json:"full_amount"`
	InstallmentAmount int64       `json:"installment_amount"`
	Amount            int64       `json:"amount"` // due now for the chosen plan
}

// PaymentIntent is one checkout attempt.
type PaymentIntent struct {
	Reference string    `json:"reference"`
	Amount    int64     `json:"amount"`
	Plan      string    `json:"plan"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`

	draft     Draft
	offering  catalog.Offering
	studentID string
}

// Wizard is the enrollment flow of one student within one browser session.
type Wizard struct {
	mu      sync.Mutex
	owner   string // student id
	step    Step
	draft   Draft
	ref     ReferenceData
	intents map[string]*PaymentIntent // {reference: intent}

	seen time.Time // guarded by Registry.mu
}

func newWizard(owner string, ref ReferenceData) *Wizard {
	return &Wizard{owner: owner, ref: ref, intents: make(map[string]*PaymentIntent)}
}

func (w *Wizard) Step() Step                   { return w.step }
func (w *Wizard) Draft() Draft                 { return w.draft }
func (w *Wizard) ReferenceData() ReferenceData { return w.ref }

// Fire applies event to the current step. A refused transition leaves the step unchanged.
func (w *Wizard) Fire(event Event) (Step, error) {
	to, err := Transition(w.step, event, w.draft)
	if err != nil {
		return w.step, err
	}
	w.step = to
	return to, nil
}

func (w *Wizard) course() (catalog.Course, bool) {
	return catalog.FindCourse(w.ref.Courses, w.draft.Course)
}

func (w *Wizard) candidates() []catalog.Offering {
	course, ok := w.course()
	if !ok {
		return make([]catalog.Offering, 0)
	}
	return catalog.TutorCandidates(w.ref.Offerings, course.Name, w.draft.Location)
}

func (w *Wizard) isCandidate(tutorCourseID string) bool {
	_, ok := catalog.FindOffering(w.candidates(), tutorCourseID)
	return ok
}

func (w *Wizard) selectedOffering() *catalog.Offering {
	if w.draft.SelectedTutor == "" {
		return nil
	}
	o, ok := catalog.FindOffering(w.candidates(), w.draft.SelectedTutor)
	if !ok {
		return nil
	}
	return &o
}

func (w *Wizard) candidate(o catalog.Offering) Candidate {
	return Candidate{
		Offering:      o,
		AdjustedPrice: pricing.AdjustedPrice(int64(o.Price), w.draft.DeliveryMethod),
		Rating:        o.Rating(),
	}
}

// Quote derives candidates and amounts out of the current draft.
func (w *Wizard) Quote() Quote {
	offerings := w.candidates()
	q := Quote{Candidates: make([]Candidate, 0, len(offerings))}
	for _, o := range offerings {
		q.Candidates = append(q.Candidates, w.candidate(o))
	}

	offering := w.selectedOffering()
	if offering != nil {
		c := w.candidate(*offering)
		q.Offering = &c
	}
	q.FullAmount = pricing.FullPaymentAmount(offering, w.draft.DeliveryMethod)
	q.InstallmentAmount = pricing.InstallmentAmount(q.FullAmount, offering != nil)
	q.Amount = pricing.AmountForPlan(offering, w.draft.DeliveryMethod, w.draft.PaymentPlan)
	return q
}

// View is the client-facing snapshot of a wizard.
type View struct {
	Step      Step          `json:"step"`
	StepName  string        `json:"step_name"`
	Draft     Draft         `json:"draft"`
	Quote     Quote         `json:"quote"`
	Reference ReferenceData `json:"reference"`
	Notice    *core.Notice  `json:"notice,omitempty"`
}

func (w *Wizard) View(notice *core.Notice) View {
	return View{
		Step:      w.step,
		StepName:  w.step.String(),
		Draft:     w.draft,
		Quote:     w.Quote(),
		Reference: w.ref,
		Notice:    notice,
	}
}

// Registry keeps the wizards in memory, keyed by browser session id. Drafts are never persisted.
// A wizard belongs to the student who opened it: another student on the same browser session
// never sees it.
type Registry struct {
	mu      sync.Mutex
	wizards map[string]*Wizard
}

func NewRegistry() *Registry {
	return &Registry{wizards: make(map[string]*Wizard)}
}

// Lookup returns the wizard of sid if it belongs to owner.
func (r *Registry) Lookup(sid, owner string) (*Wizard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wizards[sid]
	if !ok || w.owner != owner {
		return nil, false
	}
	w.seen = NowFunc()
	return w, true
}

// LoadOrStore returns the wizard of sid when it belongs to w's owner; otherwise w replaces it.
// loaded reports whether an existing wizard was returned.
func (r *Registry) LoadOrStore(sid string, w *Wizard) (actual *Wizard, loaded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.wizards[sid]; ok && cur.owner == w.owner {
		cur.seen = NowFunc()
		return cur, true
	}
	w.seen = NowFunc()
	r.wizards[sid] = w
	return w, false
}

// Discard drops the wizard of sid only if it is still w (any when w is nil).
func (r *Registry) Discard(sid string, w *Wizard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.wizards[sid]; ok && (w == nil || cur == w) {
		delete(r.wizards, sid)
	}
}

// Sweep drops the wizards left untouched for longer than idle and returns how many went.
func (r *Registry) Sweep(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	deadline := NowFunc().Add(-idle)
	n := 0
	for sid, w := range r.wizards {
		if w.seen.Before(deadline) {
			delete(r.wizards, sid)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.wizards)
}
