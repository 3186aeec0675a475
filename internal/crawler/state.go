package crawler

// State is a step of a crawl run. A run only moves forward:
// Idle → ConnectivityCheck → Resolving → Crawling → Done.
type State int

const (
	StateIdle State = iota
	StateConnectivityCheck
	StateResolving
	StateCrawling
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnectivityCheck:
		return "ConnectivityCheck"
	case StateResolving:
		return "Resolving"
	case StateCrawling:
		return "Crawling"
	case StateDone:
		return "Done"
	default:
		return "Unknown"
	}
}
