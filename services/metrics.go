package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	referralsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "miniapp_referrals_settled_total",
		Help: "Referral records settled and rewarded.",
	})
	paymentsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "miniapp_payments_confirmed_total",
		Help: "TON invoices confirmed on-chain.",
	})
	coinsMined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "miniapp_coins_mined_total",
		Help: "Coins credited through mining claims.",
	})
	battlesResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "miniapp_battles_resolved_total",
		Help: "PvP battles resolved.",
	})
)
