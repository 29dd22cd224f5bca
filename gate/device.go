package gate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jlynch25/railid/hashing"
	"golang.org/x/term"
)

var (
	// ErrDenied is returned when the device rejected the user.
	ErrDenied = errors.New("gate: device authentication failed")
	// ErrUnavailable is returned when the device has no usable authenticator.
	ErrUnavailable = errors.New("gate: device authentication unavailable")
)

// Result is the outcome of a device authentication prompt.
type Result int

// Possible prompt outcomes.
const (
	Success Result = iota
	Failure
	Unavailable
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Unavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Authenticator is the host's biometric or credential prompt. Implementations
// block until the user answers.
type Authenticator interface {
	Authenticate(ctx context.Context) Result
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context) Result

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(ctx context.Context) Result {
	return f(ctx)
}

// Require runs the prompt and converts anything but Success into an error.
func Require(ctx context.Context, a Authenticator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a == nil {
		return ErrUnavailable
	}

	switch a.Authenticate(ctx) {
	case Success:
		return nil
	case Failure:
		return ErrDenied
	default:
		return ErrUnavailable
	}
}

// TerminalAuthenticator stands in for a platform biometric prompt on a
// terminal: it asks for the device PIN without echo and compares its digest
// with the configured one.
type TerminalAuthenticator struct {
	PINHash string
	In      *os.File
	Out     io.Writer
	Prompt  string
}

// NewTerminalAuthenticator prompts on stdin/stdout. An empty pin leaves the
// authenticator unavailable.
func NewTerminalAuthenticator(pin string) *TerminalAuthenticator {
	a := &TerminalAuthenticator{
		In:     os.Stdin,
		Out:    os.Stdout,
		Prompt: "Device PIN: ",
	}
	if pin != "" {
		a.PINHash = hashing.Digest(pin)
	}
	return a
}

// Authenticate implements Authenticator.
func (a *TerminalAuthenticator) Authenticate(ctx context.Context) Result {
	if a.PINHash == "" || a.In == nil {
		return Unavailable
	}

	fd := int(a.In.Fd())
	if !term.IsTerminal(fd) {
		return Unavailable
	}
	if ctx.Err() != nil {
		return Failure
	}

	fmt.Fprint(a.Out, a.Prompt)
	pin, err := term.ReadPassword(fd)
	fmt.Fprintln(a.Out)
	if err != nil {
		return Failure
	}

	if hashing.Digest(strings.TrimSpace(string(pin))) != a.PINHash {
		return Failure
	}
	return Success
}
