package enroll

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tutorhub/core"
	"github.com/trezcool/tutorhub/core/catalog"
	appfs "github.com/trezcool/tutorhub/fs"
	"github.com/trezcool/tutorhub/services/email"
	"github.com/trezcool/tutorhub/tests"
)

var errBackendDown = errors.New("backend down")

type fakeBackend struct {
	mu         sync.Mutex
	ref        ReferenceData
	failOn     string // courses | locations | offerings | offices
	verifyErr  error
	verified   []Verification
	verifyAuth []string
	calls      int
	hold       chan struct{} // when set, Courses waits for it to close
}

func (b *fakeBackend) hit(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.failOn == name {
		return errBackendDown
	}
	return nil
}

func (b *fakeBackend) Courses(context.Context) ([]catalog.Course, error) {
	err := b.hit("courses")
	if b.hold != nil {
		<-b.hold
	}
	return b.ref.Courses, err
}

func (b *fakeBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func (b *fakeBackend) Locations(context.Context) ([]catalog.Location, error) {
	return b.ref.Locations, b.hit("locations")
}

func (b *fakeBackend) Offerings(context.Context) ([]catalog.Offering, error) {
	return b.ref.Offerings, b.hit("offerings")
}

func (b *fakeBackend) Offices(context.Context) ([]catalog.Office, error) {
	return b.ref.Offices, b.hit("offices")
}

func (b *fakeBackend) VerifyEnrollment(_ context.Context, token string, payload interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.verified = append(b.verified, payload.(Verification))
	b.verifyAuth = append(b.verifyAuth, token)
	return b.verifyErr
}

type fakeGateway struct {
	ready   error
	openErr error
	opened  []Checkout
}

func (g *fakeGateway) Name() string { return "fake" }
func (g *fakeGateway) Ready() error { return g.ready }

func (g *fakeGateway) Open(_ context.Context, c Checkout) (CheckoutSession, error) {
	if g.openErr != nil {
		return CheckoutSession{}, g.openErr
	}
	g.opened = append(g.opened, c)
	return CheckoutSession{
		Gateway:     g.Name(),
		Reference:   c.Reference,
		AmountMinor: c.AmountMinor,
		Currency:    c.Currency,
		Email:       c.Email,
	}, nil
}

func testReferenceData() ReferenceData {
	return ReferenceData{
		Courses: []catalog.Course{
			{ID: "c1", Name: "Algebra"},
			{ID: "c2", Name: "Physics"},
		},
		Locations: []catalog.Location{
			{ID: "l1", Name: "Lagos"},
			{ID: "l2", Name: "Abuja"},
			{ID: "l3", Name: "Online"},
		},
		Offerings: []catalog.Offering{
			{TutorCourseID: "t1", TutorName: "Tolu", CourseName: "Algebra", Price: 200000, Location: "Lagos"},
			{TutorCourseID: "t2", TutorName: "Ngozi", CourseName: "Algebra", Price: 60000, Location: "Abuja"},
			{TutorCourseID: "t3", TutorName: "Emeka", CourseName: "Physics", Price: 300000, Location: "Online"},
		},
		Offices: []catalog.Office{
			{ID: "o1", Name: "Yaba hub", Location: "Lagos"},
		},
	}
}

func newTestValidator() *validator.Validate {
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	InitValidators(validate, translator)
	return validate
}

type testEnv struct {
	svc     *Service
	backend *fakeBackend
	gateway *fakeGateway
	logger  *testutil.Logger
}

func setup(t *testing.T) testEnv {
	t.Helper()
	conf := testutil.NewConfig()
	logger := new(testutil.Logger)
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)
	emailsvc.ResetSentMessages()

	env := testEnv{
		backend: &fakeBackend{ref: testReferenceData()},
		gateway: &fakeGateway{},
		logger:  logger,
	}
	env.svc = NewService(conf, Deps{
		Backend:   env.backend,
		Gateway:   env.gateway,
		Validator: newTestValidator(),
		MailSvc:   emailsvc.NewConsoleServiceMock(conf),
		Logger:    logger,
	})
	return env
}

// reachedWizard returns a wizard past every step, so that any field may be set.
func reachedWizard() *Wizard {
	w := newWizard(student.ID, testReferenceData())
	w.step = StepPayment
	return w
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool     { return &b }
