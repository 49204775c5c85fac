package supervisor

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
)

const (
	StrategyConstant    = "constant"
	StrategyExponential = "exponential"
)

// Policy decides how long to wait between reconnect attempts. The default is
// a fixed 5s delay with no attempt limit.
type Policy struct {
	Strategy    string        `yaml:"strategy"`
	Delay       time.Duration `yaml:"delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	MaxAttempts int           `yaml:"max_attempts"`
}

func (p *Policy) ApplyDefaults() {
	p.Strategy = strings.ToLower(strings.TrimSpace(p.Strategy))
	if p.Strategy == "" {
		p.Strategy = StrategyConstant
	}
	if p.Delay <= 0 {
		p.Delay = 5 * time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = time.Minute
	}
}

func (p *Policy) Validate() error {
	switch p.Strategy {
	case StrategyConstant:
	case StrategyExponential:
		if p.MaxDelay < p.Delay {
			return fmt.Errorf("reconnect max_delay %s is below delay %s", p.MaxDelay, p.Delay)
		}
	default:
		return fmt.Errorf("unknown reconnect strategy %q", p.Strategy)
	}
	if p.Delay <= 0 {
		return errors.New("reconnect delay must be positive")
	}
	if p.MaxAttempts < 0 {
		return errors.New("reconnect max_attempts must not be negative")
	}
	return nil
}

// NewBackOff builds a fresh backoff.BackOff for the policy. NextBackOff
// returns backoff.Stop once MaxAttempts retries have been handed out.
func (p Policy) NewBackOff() backoff.BackOff {
	var b backoff.BackOff
	switch p.Strategy {
	case StrategyExponential:
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = p.Delay
		exp.MaxInterval = p.MaxDelay
		exp.MaxElapsedTime = 0
		exp.Reset()
		b = exp
	default:
		b = backoff.NewConstantBackOff(p.Delay)
	}
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts))
	}
	return b
}
