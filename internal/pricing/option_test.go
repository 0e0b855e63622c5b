package pricing

import (
	"errors"
	"testing"
)

func TestPriceEuropeanOption(t *testing.T) {
	base := Params{
		ExpiryTime:   2,
		PeriodNumber: 8,
		Volatility:   0.30,
		RiskFreeRate: 0.02,
		Spot:         100,
		Strike:       105,
	}

	call := base
	call.Type, call.Method = Call, MethodBS
	price, err := PriceEuropeanOption(call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if round2(price) != 16.44 {
		t.Fatalf("BS call = %.2f, want 16.44", price)
	}

	put := base
	put.Type, put.Method = Put, MethodBinomial
	price, err = PriceEuropeanOption(put)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if round2(price) != 17.35 {
		t.Fatalf("binomial put = %.2f, want 17.35", price)
	}
}

func TestPriceEuropeanOptionInvalid(t *testing.T) {
	cases := map[string]Params{
		"zero spot":        {Type: Call, Method: MethodBS, Strike: 100, ExpiryTime: 1, Volatility: 0.2},
		"unknown type":     {Type: "straddle", Method: MethodBS, Spot: 100, Strike: 100},
		"unknown method":   {Type: Put, Method: "monte-carlo", Spot: 100, Strike: 100},
		"binomial periods": {Type: Put, Method: MethodBinomial, Spot: 100, Strike: 100},
		"binomial up probability": {
			Type: Call, Method: MethodBinomial, Spot: 100, Strike: 100,
			ExpiryTime: 1, PeriodNumber: 1, Volatility: 0.02, RiskFreeRate: 0.05,
		},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := PriceEuropeanOption(p); !errors.Is(err, ErrInvalidParams) {
				t.Fatalf("expected ErrInvalidParams, got %v", err)
			}
		})
	}
}

func TestParseOptionTypeAndMethod(t *testing.T) {
	if ot, err := ParseOptionType("C"); err != nil || ot != Call {
		t.Fatalf("ParseOptionType(C) = %q, %v", ot, err)
	}
	if ot, err := ParseOptionType("Put"); err != nil || ot != Put {
		t.Fatalf("ParseOptionType(Put) = %q, %v", ot, err)
	}
	if _, err := ParseOptionType("x"); err == nil {
		t.Fatal("expected error for unknown option type")
	}
	if m, err := ParseMethod("Black-Scholes"); err != nil || m != MethodBS {
		t.Fatalf("ParseMethod = %q, %v", m, err)
	}
	if m, err := ParseMethod("binomial"); err != nil || m != MethodBinomial {
		t.Fatalf("ParseMethod = %q, %v", m, err)
	}
}
