package connect

// Strategy is a way of obtaining a wallet connection
type Strategy string

const (
	StrategyInjected Strategy = "injected"
	StrategyDeepLink Strategy = "deep-link"
	StrategyRelay    Strategy = "relay"
)

// SelectOrder returns the strategies to try, in order. Relay is always last.
func SelectOrder(env Environment) []Strategy {
	order := make([]Strategy, 0, 3)
	if env.HasInjectedProvider {
		order = append(order, StrategyInjected)
	} else if env.IsMobile && !env.IsWalletEmbeddedBrowser {
		order = append(order, StrategyDeepLink)
	}
	return append(order, StrategyRelay)
}
