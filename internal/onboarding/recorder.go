package onboarding

// Recorder receives onboarding events for metrics.
type Recorder interface {
	// SlugChecked receives every applied availability result.
	SlugChecked(status SlugStatus)
	// DraftCommitted fires when a draft's write chain finishes.
	DraftCommitted()
	// DraftFailed fires with the stage a draft stopped at.
	DraftFailed(stage Stage)
	// OnboardingCompleted fires once all drafts are saved.
	OnboardingCompleted()
}

type nopRecorder struct{}

func (nopRecorder) SlugChecked(SlugStatus) {}
func (nopRecorder) DraftCommitted()        {}
func (nopRecorder) DraftFailed(Stage)      {}
func (nopRecorder) OnboardingCompleted()   {}
