// Package bt is a small reactive behavior-tree evaluator. Trees are immutable after
// construction and are evaluated from the root on every tick; a node that needs more
// than one tick reports NodeRunning and is simply visited again on the next tick.
package bt

// NodeState is the tri-state result of evaluating a node.
type NodeState int

const (
	// NodeRunning means in progress; the node wants to be evaluated again next tick.
	NodeRunning NodeState = iota
	NodeSuccess
	NodeFailure
)

func (s NodeState) String() string {
	switch s {
	case NodeRunning:
		return "Running"
	case NodeSuccess:
		return "Success"
	case NodeFailure:
		return "Failure"
	default:
		return "Invalid"
	}
}

func (s NodeState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
