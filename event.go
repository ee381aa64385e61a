package dsim

// Event is anything a process can be asked to react to. The family is open:
// concrete algorithms define their own payload types by embedding Signal or
// Message, which supplies the Target (and Sender) accessors. Event values
// must be immutable; algorithms receive them by value and must not retain or
// modify them.
type Event interface {
	// Target is the process the event is delivered to.
	Target() Pid
}

// MessageEvent is an Event that travels between two processes and is subject
// to the synchrony model's delay. Every type embedding Message satisfies it.
type MessageEvent interface {
	Event
	// Sender is the process the event originates from.
	Sender() Pid
}

// EventSender returns the initiating process of an event: the sender for
// messages, the target itself for signals.
func EventSender(event Event) Pid {
	if message, ok := event.(MessageEvent); ok {
		return message.Sender()
	}
	return event.Target()
}

// Signal is the base of locally originated events: they have a target but no
// sender, and the simulator fires them without any synchrony delay. Embed it
// in a concrete signal type:
//
//	type Start struct{ dsim.Signal }
type Signal struct {
	To Pid `json:"to"`
}

var _ Event = Signal{}

// SignalTo builds the embeddable base for a signal targeting pid.
func SignalTo(pid Pid) Signal {
	return Signal{To: pid}
}

func (s Signal) Target() Pid {
	return s.To
}

// Message is the base of events exchanged between two processes; delivery
// time comes from the synchrony model. Embed it in a concrete message type:
//
//	type Token struct {
//		dsim.Message
//		Round int
//	}
type Message struct {
	To   Pid `json:"to"`
	From Pid `json:"from"`
}

var _ MessageEvent = Message{}

// MessageBetween builds the embeddable base for a message from sender to
// target.
func MessageBetween(sender, target Pid) Message {
	return Message{To: target, From: sender}
}

func (m Message) Target() Pid {
	return m.To
}

func (m Message) Sender() Pid {
	return m.From
}
