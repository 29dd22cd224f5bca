package gate

import (
	"context"
	"errors"
	"io/ioutil"
	"os"
	"strconv"
	"testing"
)

func TestCaptchaCodeRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		c, err := NewCaptcha()
		if err != nil {
			t.Fatalf("NewCaptcha: %v", err)
		}
		code := c.Code()
		if len(code) != 4 {
			t.Fatalf("code %q is not four digits", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil || n < captchaMin || n > captchaMax {
			t.Fatalf("code %q out of range", code)
		}
	}
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("entropy unavailable") }

func TestCaptchaRandomFailure(t *testing.T) {
	c, err := newCaptcha(brokenReader{})
	if err == nil || c != nil {
		t.Fatalf("newCaptcha(broken) = %v, %v; want error", c, err)
	}
}

func TestCaptchaSolve(t *testing.T) {
	c := &Captcha{code: "4821"}

	for _, input := range []string{"", "482", "48210", " 4821", "1234"} {
		if pass, err := c.Solve(input); !errors.Is(err, ErrCaptchaMismatch) || pass != nil {
			t.Errorf("Solve(%q) = %v, %v; want mismatch", input, pass, err)
		}
	}

	// No retry limit: a wrong answer does not lock out the right one.
	pass, err := c.Solve("4821")
	if err != nil {
		t.Fatalf("Solve(correct): %v", err)
	}
	if err := pass.Redeem(); err != nil {
		t.Fatalf("first Redeem: %v", err)
	}
	if err := pass.Redeem(); !errors.Is(err, ErrCaptchaRequired) {
		t.Fatalf("second Redeem = %v, want ErrCaptchaRequired", err)
	}

	var none *Pass
	if err := none.Redeem(); !errors.Is(err, ErrCaptchaRequired) {
		t.Fatalf("nil Redeem = %v, want ErrCaptchaRequired", err)
	}
}

func TestRequire(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   error
	}{
		{"success", Success, nil},
		{"failure", Failure, ErrDenied},
		{"unavailable", Unavailable, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := AuthenticatorFunc(func(context.Context) Result { return tt.result })
			if err := Require(context.Background(), a); !errors.Is(err, tt.want) {
				t.Fatalf("Require = %v, want %v", err, tt.want)
			}
		})
	}

	if err := Require(context.Background(), nil); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Require(nil) = %v, want ErrUnavailable", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	a := AuthenticatorFunc(func(context.Context) Result { called = true; return Success })
	if err := Require(ctx, a); !errors.Is(err, context.Canceled) || called {
		t.Fatalf("Require(cancelled) = %v, called=%v", err, called)
	}
}

func TestTerminalAuthenticatorUnavailable(t *testing.T) {
	f, err := ioutil.TempFile(t.TempDir(), "stdin")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	noPin := NewTerminalAuthenticator("")
	noPin.In = f
	if got := noPin.Authenticate(context.Background()); got != Unavailable {
		t.Errorf("no pin: %v, want unavailable", got)
	}

	notTerminal := NewTerminalAuthenticator("2468")
	notTerminal.In = f
	notTerminal.Out = ioutil.Discard
	if got := notTerminal.Authenticate(context.Background()); got != Unavailable {
		t.Errorf("regular file: %v, want unavailable", got)
	}

	if NewTerminalAuthenticator("2468").In != os.Stdin {
		t.Errorf("default input is not stdin")
	}
}
