package dsim

import "errors"

// ErrValidation is wrapped by every construction-time parameter error, e.g. a
// non-positive delay or a star topology whose center is also a leaf.
var ErrValidation = errors.New("invalid construction parameters")

// ErrUnknownProcess is wrapped whenever a Pid is looked up in a topology or
// configuration that does not contain it. During a simulation this is fatal:
// it means the algorithm and the topology disagree about who exists.
var ErrUnknownProcess = errors.New("unknown process")

// ErrUnhandledEvent must be wrapped by Algorithm.OnEvent when given an event
// kind it does not recognize. Silently returning the unchanged state would
// produce a trace that looks complete but is semantically wrong.
var ErrUnhandledEvent = errors.New("unhandled event")
