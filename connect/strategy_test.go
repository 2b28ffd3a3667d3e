package connect

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSelectOrder(t *testing.T) {
	tests := []struct {
		name string
		env  Environment
		want []Strategy
	}{
		{"desktop extension", Environment{HasInjectedProvider: true}, []Strategy{StrategyInjected, StrategyRelay}},
		{"desktop bare", Environment{}, []Strategy{StrategyRelay}},
		{"mobile browser", Environment{IsMobile: true}, []Strategy{StrategyDeepLink, StrategyRelay}},
		{"wallet app with provider", Environment{IsMobile: true, HasInjectedProvider: true, IsWalletEmbeddedBrowser: true}, []Strategy{StrategyInjected, StrategyRelay}},
		{"wallet app without provider", Environment{IsMobile: true, IsWalletEmbeddedBrowser: true}, []Strategy{StrategyRelay}},
		{"mobile with provider", Environment{IsMobile: true, HasInjectedProvider: true}, []Strategy{StrategyInjected, StrategyRelay}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, SelectOrder(tt.env)); diff != "" {
				t.Errorf("SelectOrder mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelectOrder_InjectedFirstAndRelayLast(t *testing.T) {
	for _, mobile := range []bool{false, true} {
		for _, embedded := range []bool{false, true} {
			for _, injected := range []bool{false, true} {
				order := SelectOrder(Environment{IsMobile: mobile, HasInjectedProvider: injected, IsWalletEmbeddedBrowser: embedded})
				if injected && order[0] != StrategyInjected {
					t.Errorf("injected provider present but first strategy is %s", order[0])
				}
				if order[len(order)-1] != StrategyRelay {
					t.Errorf("relay is not last: %v", order)
				}
				seen := map[Strategy]bool{}
				for _, s := range order {
					if seen[s] {
						t.Errorf("duplicate strategy %s in %v", s, order)
					}
					seen[s] = true
				}
			}
		}
	}
}
