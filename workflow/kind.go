package workflow

// Kind is the tagged variant identifying which flow a run belongs to.
// Presentation logic dispatches on Kind, never on display strings.
type Kind string

const (
	// KindRegistration registers a document on the ledger.
	KindRegistration Kind = "registration"
	// KindExternalShare shares a document with external recipients.
	KindExternalShare Kind = "external_share"
	// KindFirmShare shares a document with every member of the firm.
	KindFirmShare Kind = "firm_share"
	// KindLicensing creates a paid license offer for a document.
	KindLicensing Kind = "licensing"
	// KindCoopShare publishes a document to the data co-op marketplace.
	KindCoopShare Kind = "coop_share"
)

// Kinds returns all flow kinds in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindRegistration,
		KindExternalShare,
		KindFirmShare,
		KindLicensing,
		KindCoopShare,
	}
}

// Valid reports whether k is one of the known flow kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindRegistration, KindExternalShare, KindFirmShare, KindLicensing, KindCoopShare:
		return true
	}
	return false
}
