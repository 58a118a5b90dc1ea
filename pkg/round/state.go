package round

type State uint8

const (
	Idle State = iota
	Selecting
	Notifying
	Collecting
	Aggregating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selecting:
		return "selecting"
	case Notifying:
		return "notifying"
	case Collecting:
		return "collecting"
	case Aggregating:
		return "aggregating"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
