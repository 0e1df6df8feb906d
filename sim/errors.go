package sim

import "errors"

// ErrConfiguration is the root of every setup-time error. Configuration errors
// are detected before a simulation runs and abort it.
var ErrConfiguration = errors.New("configuration error")

var (
	ErrInvalidLinkArity      = configError("invalid link arity")
	ErrInvalidLinkParams     = configError("invalid link parameters")
	ErrAddressSpaceExhausted = configError("address space exhausted")
	ErrOverlappingSubnet     = configError("overlapping subnet")
	ErrInvalidSubnet         = configError("invalid subnet")
	ErrLinkAlreadyAddressed  = configError("link already addressed")
	ErrUnknownNode           = configError("unknown node")
	ErrUnknownLink           = configError("unknown link")
	ErrUnknownAddress        = configError("unknown address")
	ErrInvalidApplication    = configError("invalid application")
	ErrPortInUse             = configError("port in use")
	ErrRoutesNotBuilt        = configError("routes not built")
	ErrAlreadyRun            = configError("simulation already run")
)

// ErrUnreachableDestination reports node pairs that cannot reach each other.
var ErrUnreachableDestination = errors.New("unreachable destination")

type configErr struct {
	msg string
}

func configError(msg string) error {
	return &configErr{msg: msg}
}

func (e *configErr) Error() string {
	return e.msg
}

func (e *configErr) Is(target error) bool {
	return target == ErrConfiguration
}
