package params

import (
	"errors"
	"testing"
)

func TestDefaultParamsValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}
}

func TestValidateRejectsInconsistentParams(t *testing.T) {
	cases := map[string]func(*Params){
		"split sum":        func(p *Params) { p.CreatorFeeSplitBps = 1_999 },
		"bps overflow":     func(p *Params) { p.PenaltyBps = 10_001 },
		"supply split":     func(p *Params) { p.CirculatingPercent = 79 },
		"voting bounds":    func(p *Params) { p.MinVotingHours = 200 },
		"zero stake":       func(p *Params) { p.MinStake = 0 },
		"fees over pool":   func(p *Params) { p.CuratorFeeBps = 9_000; p.PlatformFeeBps = 2_000 },
		"negative windows": func(p *Params) { p.DefaultVotingWindowSecs = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := Default()
			mutate(&p)
			if err := p.Validate(); err == nil {
				t.Fatalf("expected validation failure")
			}
		})
	}
}

func TestValidateFeeSplits(t *testing.T) {
	if err := ValidateFeeSplits(5_000, 3_000, 2_000); err != nil {
		t.Fatalf("valid splits rejected: %v", err)
	}
	if err := ValidateFeeSplits(5_000, 3_000, 2_001); !errors.Is(err, ErrInvalidFeeSplits) {
		t.Fatalf("expected ErrInvalidFeeSplits, got %v", err)
	}
	if err := ValidateFeeSplits(10_000, 0, 0); err != nil {
		t.Fatalf("single destination split rejected: %v", err)
	}
}
