package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Verification results used as the "result" label
const (
	ResultLinked            = "linked"
	ResultBadRequest        = "bad_request"
	ResultNoNonce           = "no_nonce"
	ResultExpired           = "expired"
	ResultSignatureMismatch = "signature_mismatch"
	ResultError             = "error"
)

var (
	// NoncesIssued counts nonces handed out
	NoncesIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "walletlink_nonces_issued_total",
			Help: "Total number of login nonces issued",
		},
	)

	// Verifications counts wallet verifications by result
	Verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletlink_verifications_total",
			Help: "Total number of wallet verifications",
		},
		[]string{"result"},
	)

	// VerificationDuration tracks verification processing time
	VerificationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "walletlink_verification_duration_seconds",
			Help:    "Wallet verification duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// WalletLinksStored counts successful link writes
	WalletLinksStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "walletlink_wallet_links_stored_total",
			Help: "Total number of wallet links persisted",
		},
	)

	// NoncesPurged counts expired nonces removed by the janitor
	NoncesPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "walletlink_nonces_purged_total",
			Help: "Total number of expired nonces purged",
		},
	)

	// RateLimited counts requests rejected by the rate limiter
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletlink_rate_limited_total",
			Help: "Total number of requests rejected by rate limiting",
		},
		[]string{"route"},
	)
)
