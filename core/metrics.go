package core

// Recorder counts the portal's notable events.
type Recorder interface {
	BackendRequest(endpoint string, status int)
	WizardTransition(from, to string, blocked bool)
	CheckoutOpened(gateway string)
	Verification(outcome string)
}

type nopRecorder struct{}

// NopRecorder discards everything.
var NopRecorder Recorder = nopRecorder{}

func (nopRecorder) BackendRequest(string, int)            {}
func (nopRecorder) WizardTransition(string, string, bool) {}
func (nopRecorder) CheckoutOpened(string)                 {}
func (nopRecorder) Verification(string)                   {}
