package pricing

import (
	"errors"
	"fmt"
	"strings"
)

// OptionType is the side of a European option.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// Method selects the pricing model.
type Method string

const (
	MethodBS       Method = "bs"
	MethodBinomial Method = "binomial"
)

var ErrInvalidParams = errors.New("invalid pricing parameters")

// ParseOptionType accepts "call"/"put" and the short forms "c"/"p", any case.
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	}
	return "", fmt.Errorf("unknown option type %q", s)
}

// ParseMethod accepts "bs" (or "black-scholes") and "binomial".
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bs", "black-scholes", "blackscholes":
		return MethodBS, nil
	case "binomial", "crr":
		return MethodBinomial, nil
	}
	return "", fmt.Errorf("unknown pricing method %q", s)
}

// Params describes a European option pricing request.
type Params struct {
	Type         OptionType `json:"type" yaml:"type"`
	Method       Method     `json:"method" yaml:"method"`
	ExpiryTime   float64    `json:"expiry_time" yaml:"expiry_time"`     // years
	PeriodNumber int        `json:"period_number" yaml:"period_number"` // binomial only
	Volatility   float64    `json:"volatility" yaml:"volatility"`
	RiskFreeRate float64    `json:"risk_free_rate" yaml:"risk_free_rate"`
	Spot         float64    `json:"spot" yaml:"spot"`
	Strike       float64    `json:"strike" yaml:"strike"`
}

// Validate checks the request before pricing.
func (p Params) Validate() error {
	if p.Spot <= 0 || p.Strike <= 0 {
		return fmt.Errorf("%w: spot and strike must be positive (spot=%g strike=%g)", ErrInvalidParams, p.Spot, p.Strike)
	}
	if p.Type != Call && p.Type != Put {
		return fmt.Errorf("%w: option type %q", ErrInvalidParams, p.Type)
	}
	switch p.Method {
	case MethodBS:
	case MethodBinomial:
		if p.PeriodNumber < 1 {
			return fmt.Errorf("%w: binomial method needs at least one period", ErrInvalidParams)
		}
		if err := checkLattice(p.ExpiryTime, p.RiskFreeRate, p.Volatility, p.PeriodNumber); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: method %q", ErrInvalidParams, p.Method)
	}
	return nil
}

// PriceEuropeanOption prices the option described by p.
func PriceEuropeanOption(p Params) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	isCall := p.Type == Call
	if p.Method == MethodBinomial {
		return BinomialPrice(isCall, p.Spot, p.Strike, p.ExpiryTime, p.RiskFreeRate, p.Volatility, p.PeriodNumber), nil
	}
	return BlackScholesPrice(isCall, p.Spot, p.Strike, p.ExpiryTime, p.RiskFreeRate, p.Volatility), nil
}
