package workflow

import "fmt"

// Step is what a node hands back to the engine: Continue, Suspended or Terminal.
type Step interface {
	step()
}

// Continue moves the run to Next.
type Continue struct {
	Next NodeID
}

// Suspended stops the run before the suspend point At, showing Prompt to the user.
type Suspended struct {
	At     NodeID
	Prompt string
}

type TerminalKind int

const (
	Completed TerminalKind = iota + 1
	Violated
	Aborted
	Failed
)

func (k TerminalKind) String() string {
	switch k {
	case Completed:
		return "completed"
	case Violated:
		return "violation"
	case Aborted:
		return "aborted"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("TerminalKind(%d)", int(k))
	}
}

// Terminal ends the run. Err is set only for Failed.
type Terminal struct {
	Kind TerminalKind
	Err  error
}

func (Continue) step()  {}
func (Suspended) step() {}
func (Terminal) step()  {}
