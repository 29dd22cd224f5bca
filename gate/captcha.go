// Package gate holds the two presence checks railid puts in front of
// sensitive operations: a numeric CAPTCHA confirming a human wants to cancel a
// ticket, and the device-authentication capability guarding ticket issuance and
// verification responses.
package gate

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
)

const (
	captchaMin = 1000
	captchaMax = 9999
)

var (
	// ErrCaptchaMismatch is returned by Solve when the input differs from the code.
	ErrCaptchaMismatch = errors.New("gate: captcha does not match")
	// ErrCaptchaRequired is returned when an operation is attempted without an
	// unused captcha pass.
	ErrCaptchaRequired = errors.New("gate: captcha pass required")
)

// Captcha is a four digit code shown for the lifetime of one prompt. It never
// expires and accepts any number of attempts.
type Captcha struct {
	code string
}

// NewCaptcha draws a fresh code in [1000, 9999].
func NewCaptcha() (*Captcha, error) {
	return newCaptcha(rand.Reader)
}

func newCaptcha(r io.Reader) (*Captcha, error) {
	n, err := rand.Int(r, big.NewInt(captchaMax-captchaMin+1))
	if err != nil {
		return nil, fmt.Errorf("gate: draw captcha: %w", err)
	}

	return &Captcha{code: strconv.FormatInt(n.Int64()+captchaMin, 10)}, nil
}

// Code is the text displayed to the user.
func (c *Captcha) Code() string {
	return c.code
}

// Solve compares input with the code by exact string equality. A match returns
// a single-use Pass.
func (c *Captcha) Solve(input string) (*Pass, error) {
	if input != c.code {
		return nil, ErrCaptchaMismatch
	}
	return &Pass{}, nil
}

// Pass proves a captcha was solved. It can be redeemed once.
type Pass struct {
	used bool
}

// Redeem consumes the pass.
func (p *Pass) Redeem() error {
	if p == nil || p.used {
		return ErrCaptchaRequired
	}
	p.used = true
	return nil
}
