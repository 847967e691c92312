package commit

// Stage is the commit stage of a document.
type Stage int32

const (
	// Dirty is the initial stage: the tree may be behind the text.
	Dirty Stage = iota
	// QueuedToCommit means a background task is queued or running.
	QueuedToCommit
	// WaitingForTreeApply means a reparse finished and waits for the
	// write section.
	WaitingForTreeApply
	// Committed means the tree matches the text.
	Committed
	// AboutToBeSyncCommitted means a synchronous commit is in progress.
	AboutToBeSyncCommitted
)

// Stages lists every stage in declaration order.
var Stages = []Stage{Dirty, QueuedToCommit, WaitingForTreeApply, Committed, AboutToBeSyncCommitted}

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case Dirty:
		return "Dirty"
	case QueuedToCommit:
		return "QueuedToCommit"
	case WaitingForTreeApply:
		return "WaitingForTreeApply"
	case Committed:
		return "Committed"
	case AboutToBeSyncCommitted:
		return "AboutToBeSyncCommitted"
	default:
		return "Unknown"
	}
}

// Legal reports whether from → to is a defined transition.
func Legal(from, to Stage) bool {
	switch to {
	case QueuedToCommit:
		// re-queue is allowed from anywhere
		return from.valid()
	case WaitingForTreeApply:
		return from == QueuedToCommit
	case Committed:
		return from == WaitingForTreeApply || from == AboutToBeSyncCommitted
	case AboutToBeSyncCommitted:
		return from == Dirty || from == QueuedToCommit || from == WaitingForTreeApply
	default:
		return false
	}
}

func (s Stage) valid() bool {
	return s >= Dirty && s <= AboutToBeSyncCommitted
}
