package rewards

import "depinledger/core/period"

// RewardPerChecker returns the reward credited to each selected checker for
// a submission in period p. The amount steps down monthly through the first
// year, then every six months, and floors at 100 from month 60.
func RewardPerChecker(p uint16) uint16 {
	return RewardForMonth(period.MonthIndex(p))
}

// RewardForMonth maps a month index (June 2025 = 0) to the per-checker
// reward.
func RewardForMonth(month uint16) uint16 {
	switch {
	case month < 12:
		// 1000 in June 2025, minus 50 each month through May 2026.
		return 1000 - 50*month
	case month < 18:
		return 400
	case month < 24:
		return 350
	case month < 30:
		return 300
	case month < 36:
		return 250
	case month < 42:
		return 200
	case month < 48:
		return 175
	case month < 54:
		return 150
	case month < 60:
		return 125
	default:
		return 100
	}
}
