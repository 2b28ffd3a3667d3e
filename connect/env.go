// Package connect establishes a wallet connection from whatever the client
// environment offers and drives the nonce, sign and verify link flow.
package connect

import (
	"regexp"
	"strings"
	"sync"
)

// DefaultEmbeddedMarkers identify a wallet app's own in-app browser
var DefaultEmbeddedMarkers = []string{"MetaMaskMobile"}

var mobileUA = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)

// Environment classifies the client the flow runs in
type Environment struct {
	IsMobile                bool
	HasInjectedProvider     bool
	IsWalletEmbeddedBrowser bool
}

// Probe reads the ambient client state
type Probe interface {
	UserAgent() string
	HasInjectedProvider() bool
}

// StaticProbe is a Probe with fixed answers
type StaticProbe struct {
	UA       string
	Injected bool
}

func (p StaticProbe) UserAgent() string         { return p.UA }
func (p StaticProbe) HasInjectedProvider() bool { return p.Injected }

// Detector classifies the environment
type Detector interface {
	Detect() Environment
}

// UADetector classifies by user agent and provider presence
type UADetector struct {
	probe   Probe
	markers []string
}

// NewDetector creates a detector reading probe. Without markers the
// DefaultEmbeddedMarkers are used.
func NewDetector(probe Probe, markers ...string) *UADetector {
	if len(markers) == 0 {
		markers = DefaultEmbeddedMarkers
	}
	return &UADetector{probe: probe, markers: markers}
}

// Detect has no side effects and may be called repeatedly
func (d *UADetector) Detect() Environment {
	ua := d.probe.UserAgent()

	embedded := false
	for _, m := range d.markers {
		if strings.Contains(ua, m) {
			embedded = true
			break
		}
	}

	return Environment{
		IsMobile:                mobileUA.MatchString(ua),
		HasInjectedProvider:     d.probe.HasInjectedProvider(),
		IsWalletEmbeddedBrowser: embedded,
	}
}

type cachedDetector struct {
	inner Detector
	once  sync.Once
	env   Environment
}

// NewCachedDetector memoizes the first classification of inner
func NewCachedDetector(inner Detector) Detector {
	return &cachedDetector{inner: inner}
}

func (c *cachedDetector) Detect() Environment {
	c.once.Do(func() { c.env = c.inner.Detect() })
	return c.env
}
