package booking

// Step is where the guest is in the wizard
type Step int

const (
	StepSelectingEvent Step = iota
	StepSelectingPackage
	StepEnteringContact
	StepSubmitting
	StepConfirmed
)

func (s Step) String() string {
	switch s {
	case StepSelectingEvent:
		return "selecting_event"
	case StepSelectingPackage:
		return "selecting_package"
	case StepEnteringContact:
		return "entering_contact"
	case StepSubmitting:
		return "submitting"
	case StepConfirmed:
		return "confirmed"
	}
	return "unknown"
}
