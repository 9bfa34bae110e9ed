package service

import "github.com/prometheus/client_golang/prometheus"

// SteamHandshakes counts Steam sign-in attempts by outcome: "ok" or one of
// the redirect error codes.
var SteamHandshakes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gamevault_steam_handshakes_total",
		Help: "Total number of Steam OpenID handshakes by outcome",
	},
	[]string{"outcome"},
)

// SecondFactorVerifications counts verify-2fa results.
var SecondFactorVerifications = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gamevault_2fa_verifications_total",
		Help: "Total number of second-factor verifications by result",
	},
	[]string{"result"},
)

// HousekeepingDeleted counts records removed by the housekeeping worker.
var HousekeepingDeleted = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gamevault_housekeeping_deleted_total",
		Help: "Total number of expired records removed by housekeeping",
	},
	[]string{"kind"},
)

// RegisterMetrics registers the service metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(SteamHandshakes)
	reg.MustRegister(SecondFactorVerifications)
	reg.MustRegister(HousekeepingDeleted)
}
