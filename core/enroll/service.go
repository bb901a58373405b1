package enroll

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/tutorhub/core"
	"github.com/trezcool/tutorhub/core/catalog"
	"github.com/trezcool/tutorhub/core/pricing"
	"github.com/trezcool/tutorhub/core/session"
)

// Callback statuses
const (
	StatusSuccess   = "success"
	StatusCancelled = "cancelled"
)

const (
	referenceKind = "ENROLL"
	dashboardPath = "/student/dashboard"
)

var NowFunc = time.Now // mockable

type (
	// Backend is the part of the REST backend the wizard talks to.
	Backend interface {
		Courses(ctx context.Context) ([]catalog.Course, error)
		Locations(ctx context.Context) ([]catalog.Location, error)
		Offerings(ctx context.Context) ([]catalog.Offering, error)
		Offices(ctx context.Context) ([]catalog.Office, error)
		VerifyEnrollment(ctx context.Context, token string, payload interface{}) error
	}

	// Verification is posted to the backend once the gateway reports a successful charge.
	Verification struct {
		Reference      string `json:"reference"`
		StudentID      string `json:"student_id"`
		TutorCourseID  string `json:"tutor_course_id"`
		CourseID       string `json:"course_id"`
		Location       string `json:"location"`
		DeliveryMethod string `json:"delivery_method"`
		PaymentPlan    string `json:"payment_plan"`
		OfficeID       string `json:"office_id"`
		Email          string `json:"email"`
		Name           string `json:"name"`
	}

	// Callback is the checkout outcome reported by the client.
	Callback struct {
		Reference   string `json:"reference" validate:"required"`
		Status      string `json:"status" validate:"required,callback_status"`
		Transaction string `json:"transaction,omitempty"`
	}

	CheckoutResult struct {
		Intent   PaymentIntent   `json:"intent"`
		Checkout CheckoutSession `json:"checkout"`
	}

	// Result closes a checkout attempt. After a verified enrollment the client goes to Redirect
	// once RedirectAfter has elapsed, leaving the notice time to be read.
	Result struct {
		Reference     string       `json:"reference"`
		Notice        *core.Notice `json:"notice"`
		Redirect      string       `json:"redirect,omitempty"`
		RedirectAfter int64        `json:"redirect_after_ms,omitempty"`
	}

	Deps struct {
		Backend   Backend
		Gateway   Gateway
		Registry  *Registry
		Validator *validator.Validate
		MailSvc   core.EmailService
		Logger    core.Logger
		Recorder  core.Recorder
	}

	Service struct {
		Deps
		currency      string
		callbackURL   string
		redirectDelay time.Duration
		supportEmail  mail.Address
	}
)

func NewService(conf *core.Config, deps Deps) *Service {
	if deps.Registry == nil {
		deps.Registry = NewRegistry()
	}
	if deps.Recorder == nil {
		deps.Recorder = core.NopRecorder
	}
	return &Service{
		Deps:          deps,
		currency:      conf.Checkout.Currency,
		callbackURL:   strings.TrimRight(conf.FrontendBaseURL, "/") + "/student/enroll",
		redirectDelay: conf.Checkout.RedirectDelay,
		supportEmail:  conf.SupportEmail,
	}
}

// ReferenceData fetches the four reference lists concurrently. Any failure yields one error
// notice and four empty lists.
func (svc *Service) ReferenceData(ctx context.Context) (ReferenceData, *core.Notice) {
	ref := emptyReferenceData()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ref.Courses, err = svc.Backend.Courses(gctx)
		return errors.Wrap(err, "fetching courses")
	})
	g.Go(func() (err error) {
		ref.Locations, err = svc.Backend.Locations(gctx)
		return errors.Wrap(err, "fetching locations")
	})
	g.Go(func() (err error) {
		ref.Offerings, err = svc.Backend.Offerings(gctx)
		return errors.Wrap(err, "fetching offerings")
	})
	g.Go(func() (err error) {
		ref.Offices, err = svc.Backend.Offices(gctx)
		return errors.Wrap(err, "fetching offices")
	})
	if err := g.Wait(); err != nil {
		svc.Logger.Error("enroll: loading reference data", err)
		return emptyReferenceData(), core.ErrorNotice("Failed to load enrollment options. Please try again later.")
	}
	return ref, nil
}

// Open returns the student's wizard on the session, starting a new one when there is none.
func (svc *Service) Open(ctx context.Context, sid, studentID string) View {
	w, notice := svc.wizard(ctx, sid, studentID)
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.View(notice)
}

func (svc *Service) wizard(ctx context.Context, sid, studentID string) (*Wizard, *core.Notice) {
	if w, ok := svc.Registry.Lookup(sid, studentID); ok {
		return w, nil
	}
	ref, notice := svc.ReferenceData(ctx)
	w, loaded := svc.Registry.LoadOrStore(sid, newWizard(studentID, ref))
	if loaded {
		// a concurrent request started it first
		return w, nil
	}
	return w, notice
}

// Reset discards the session's draft.
func (svc *Service) Reset(sid string) {
	svc.Registry.Discard(sid, nil)
}

// RunSweeper drops the wizards idle for longer than idle until ctx is done.
func (svc *Service) RunSweeper(ctx context.Context, idle time.Duration) {
	if idle <= 0 {
		return
	}
	every := idle
	if every > time.Minute {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := svc.Registry.Sweep(idle); n > 0 {
				svc.Logger.Debug(fmt.Sprintf("enroll: swept %d idle wizard(s)", n))
			}
		}
	}
}

// Update applies the changed draft fields.
func (svc *Service) Update(ctx context.Context, sid, studentID string, u DraftUpdate) (View, error) {
	if err := svc.Validator.Struct(u); err != nil {
		return View{}, err
	}
	w, notice := svc.wizard(ctx, sid, studentID)
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.Apply(u); err != nil {
		return w.View(notice), err
	}
	return w.View(notice), nil
}

// Fire moves the session's wizard. A refused move returns the unchanged view and a *BlockedError.
func (svc *Service) Fire(ctx context.Context, sid, studentID string, event Event) (View, error) {
	w, _ := svc.wizard(ctx, sid, studentID)
	w.mu.Lock()
	defer w.mu.Unlock()

	from := w.step
	to, err := w.Fire(event)
	svc.Recorder.WizardTransition(from.String(), to.String(), err != nil)
	if bErr, ok := err.(*BlockedError); ok {
		return w.View(bErr.Notice), err
	}
	return w.View(nil), err
}

func (svc *Service) newReference(w *Wizard, studentID string) string {
	millis := NowFunc().UnixMilli()
	for {
		ref := fmt.Sprintf("%s-%s-%d", referenceKind, studentID, millis)
		if _, taken := w.intents[ref]; !taken {
			return ref
		}
		millis++
	}
}

// Checkout opens a gateway checkout for the finished draft of the session.
func (svc *Service) Checkout(ctx context.Context, sid string, id *session.Identity) (CheckoutResult, error) {
	w, ok := svc.Registry.Lookup(sid, identityID(id))
	if !ok {
		return CheckoutResult{}, blocked(StepCourseLocation, "Please start your enrollment first.")
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepPayment {
		return CheckoutResult{}, blocked(w.step, "Please complete the previous steps first.")
	}

	d := w.draft
	if d.Course == "" || d.Location == "" || d.DeliveryMethod == "" || d.SelectedTutor == "" || d.PaymentPlan == "" ||
		(d.DeliveryMethod == deliveryOnsite && d.OfficeID == "") {
		return CheckoutResult{}, blocked(w.step, "Please complete all enrollment fields.")
	}
	if !d.TermsAccepted {
		return CheckoutResult{}, blocked(w.step, "Please accept the terms and conditions.")
	}
	if id == nil || id.Email == "" {
		return CheckoutResult{}, &BlockedError{Step: w.step, Notice: core.ErrorNotice("Your profile has no email address. Please update it before paying.")}
	}
	offering := w.selectedOffering()
	if offering == nil {
		return CheckoutResult{}, blocked(w.step, "The selected tutor is no longer available for this course.")
	}
	if err := svc.Gateway.Ready(); err != nil {
		svc.Logger.Error("enroll: checkout gateway not ready", err)
		return CheckoutResult{}, &BlockedError{Step: w.step, Notice: core.ErrorNotice("Payment gateway is not available. Please try again later.")}
	}

	amount := pricing.AmountForPlan(offering, d.DeliveryMethod, d.PaymentPlan)
	intent := &PaymentIntent{
		Reference: svc.newReference(w, id.ID),
		Amount:    amount,
		Plan:      d.PaymentPlan,
		Currency:  svc.currency,
		CreatedAt: NowFunc().UTC(),
		draft:     d,
		offering:  *offering,
		studentID: id.ID,
	}

	cs, err := svc.Gateway.Open(ctx, Checkout{
		Reference:   intent.Reference,
		Email:       id.Email,
		Name:        id.Name,
		AmountMinor: pricing.ToMinorUnits(amount),
		Currency:    svc.currency,
		CallbackURL: svc.callbackURL,
		Metadata: map[string]string{
			"student_id":      id.ID,
			"tutor_course_id": d.SelectedTutor,
			"course_id":       d.Course,
			"payment_plan":    d.PaymentPlan,
		},
	})
	if err != nil {
		svc.Logger.Error("enroll: opening checkout", err, id, map[string]interface{}{"reference": intent.Reference})
		return CheckoutResult{}, &BlockedError{Step: w.step, Notice: core.ErrorNotice("Could not start the payment. Please try again.")}
	}
	w.intents[intent.Reference] = intent
	svc.Recorder.CheckoutOpened(svc.Gateway.Name())
	return CheckoutResult{Intent: *intent, Checkout: cs}, nil
}

// Complete handles the checkout outcome: a successful charge is verified with the backend once.
// A failed verification is reported to support; there is no retry.
func (svc *Service) Complete(ctx context.Context, sid string, id *session.Identity, token string, cb Callback) (Result, error) {
	if err := svc.Validator.Struct(cb); err != nil {
		return Result{}, err
	}
	unknownRef := fieldErr("reference", "unknown payment reference")

	w, ok := svc.Registry.Lookup(sid, identityID(id))
	if !ok {
		return Result{}, unknownRef
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	intent, ok := w.intents[cb.Reference]
	if !ok || id == nil || intent.studentID != id.ID {
		return Result{}, unknownRef
	}
	delete(w.intents, cb.Reference)

	if cb.Status == StatusCancelled {
		svc.Recorder.Verification("cancelled")
		return Result{Reference: intent.Reference, Notice: core.InfoNotice("Payment cancelled.")}, nil
	}

	d := intent.draft
	payload := Verification{
		Reference:      intent.Reference,
		StudentID:      id.ID,
		TutorCourseID:  d.SelectedTutor,
		CourseID:       d.Course,
		Location:       d.Location,
		DeliveryMethod: d.DeliveryMethod,
		PaymentPlan:    d.PaymentPlan,
		OfficeID:       d.OfficeID,
		Email:          id.Email,
		Name:           id.Name,
	}
	data := svc.mailData(intent, id)

	if err := svc.Backend.VerifyEnrollment(ctx, token, payload); err != nil {
		svc.Recorder.Verification("failed")
		svc.Logger.Error("enroll: verifying enrollment", err, id, map[string]interface{}{
			"reference":   intent.Reference,
			"transaction": cb.Transaction,
		})
		data.Error = err.Error()
		svc.MailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{svc.supportEmail},
			Subject:      "Unverified payment " + intent.Reference,
			TemplateName: "payment_unverified",
			TemplateData: data,
		})
		return Result{
			Reference: intent.Reference,
			Notice: core.ErrorNotice(fmt.Sprintf(
				"Your payment went through but we could not confirm your enrollment. Please contact support with reference %s.",
				intent.Reference,
			)),
		}, nil
	}

	svc.Recorder.Verification("verified")
	svc.Registry.Discard(sid, w)
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: id.Name, Address: id.Email}},
		Subject:      "Enrollment confirmed",
		TemplateName: "enrollment_confirmed",
		TemplateData: data,
	}
	if err := msg.Attach(strings.NewReader(data.receipt()), "receipt-"+intent.Reference+".txt", "text/plain"); err != nil {
		svc.Logger.Error("enroll: attaching receipt", err, id)
	}
	svc.MailSvc.SendMessages(msg)
	return Result{
		Reference:     intent.Reference,
		Notice:        core.SuccessNotice("Payment successful! You are now enrolled."),
		Redirect:      dashboardPath,
		RedirectAfter: svc.redirectDelay.Milliseconds(),
	}, nil
}

type mailData struct {
	Reference     string
	StudentName   string
	StudentEmail  string
	StudentID     string
	TutorCourseID string
	CourseID      string
	CourseName    string
	TutorName     string
	PaymentPlan   string
	Amount        int64
	Currency      string
	Error         string
}

func (d mailData) receipt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Receipt %s\n\n", d.Reference)
	fmt.Fprintf(&b, "Student: %s <%s>\n", d.StudentName, d.StudentEmail)
	fmt.Fprintf(&b, "Course:  %s\n", d.CourseName)
	fmt.Fprintf(&b, "Tutor:   %s\n", d.TutorName)
	fmt.Fprintf(&b, "Plan:    %s\n", d.PaymentPlan)
	fmt.Fprintf(&b, "Paid:    %d %s\n", d.Amount, d.Currency)
	return b.String()
}

func identityID(id *session.Identity) string {
	if id == nil {
		return ""
	}
	return id.ID
}

func (svc *Service) mailData(intent *PaymentIntent, id *session.Identity) mailData {
	return mailData{
		Reference:     intent.Reference,
		StudentName:   id.Name,
		StudentEmail:  id.Email,
		StudentID:     id.ID,
		TutorCourseID: intent.draft.SelectedTutor,
		CourseID:      intent.draft.Course,
		CourseName:    intent.offering.CourseName,
		TutorName:     intent.offering.TutorName,
		PaymentPlan:   intent.Plan,
		Amount:        intent.Amount,
		Currency:      intent.Currency,
	}
}
