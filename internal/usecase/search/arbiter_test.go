package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/xraysearch/internal/domain/search/filter"
)

func TestArbiter_TokensIncrease(t *testing.T) {
	a := NewArbiter()
	if tok, _, phase := a.Current(); tok != 0 || phase != PhaseIdle {
		t.Fatalf("initial = %d, %q", tok, phase)
	}
	prev := Token(0)
	for i := 0; i < 5; i++ {
		tok := a.Dispatch(filter.State{}, nil)
		if tok <= prev {
			t.Fatalf("token %d not greater than %d", tok, prev)
		}
		prev = tok
	}
}

func TestArbiter_OnlyLatestAccepted(t *testing.T) {
	orders := [][]int{
		{1, 0, 2},
		{0, 1, 2},
		{2, 1, 0},
		{2, 0, 1},
	}
	for _, order := range orders {
		a := NewArbiter()
		var toks []Token
		for _, q := range []string{"p", "pn", "pne"} {
			toks = append(toks, a.Dispatch(filter.State{FreeText: q}, nil))
		}
		accepted := 0
		for _, i := range order {
			v := a.Settle(toks[i])
			if v == Accepted {
				accepted++
				if i != 2 {
					t.Errorf("order %v: token %d accepted", order, toks[i])
				}
			}
		}
		if accepted != 1 {
			t.Errorf("order %v: %d acceptances, want 1", order, accepted)
		}
	}
}

func TestArbiter_SecondSettlementIgnored(t *testing.T) {
	a := NewArbiter()
	tok := a.Dispatch(filter.State{}, nil)
	if v := a.Settle(tok); v != Accepted {
		t.Fatalf("first settle = %v", v)
	}
	if v := a.Settle(tok); v != AlreadySettled {
		t.Errorf("second settle = %v, want AlreadySettled", v)
	}
	if a.IsCurrent(tok) {
		t.Error("settled token must not be in flight")
	}
}

func TestArbiter_DispatchCancelsPrevious(t *testing.T) {
	a := NewArbiter()
	ctx1, cancel1 := context.WithCancel(context.Background())
	first := a.Dispatch(filter.State{FreeText: "a"}, cancel1)
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	second := a.Dispatch(filter.State{FreeText: "ab"}, cancel2)

	if ctx1.Err() == nil {
		t.Error("superseded request was not cancelled")
	}
	if ctx2.Err() != nil {
		t.Error("current request cancelled")
	}
	if v := a.Settle(first); v != Superseded {
		t.Errorf("Settle(first) = %v", v)
	}
	_, state, phase := a.Current()
	if state.FreeText != "ab" || phase != PhaseDispatched {
		t.Errorf("current = %+v, %q", state, phase)
	}
	if v := a.Settle(second); v != Accepted {
		t.Errorf("Settle(second) = %v", v)
	}
	if ctx2.Err() == nil {
		t.Error("settled request context not released")
	}
}

func TestArbiter_Cancel(t *testing.T) {
	a := NewArbiter()
	ctx, cancel := context.WithCancel(context.Background())
	tok := a.Dispatch(filter.State{}, cancel)
	a.Cancel()
	if ctx.Err() == nil {
		t.Error("Cancel did not cancel the request")
	}
	if v := a.Settle(tok); v != AlreadySettled {
		t.Errorf("Settle after Cancel = %v", v)
	}
	a.Cancel()
}

func TestVerdict_String(t *testing.T) {
	if Superseded.String() != "superseded" || Verdict(42).String() != "unknown" {
		t.Error("unexpected verdict names")
	}
}
