package secret

import "fmt"

// remaining is the derived human-readable retention status of a record.
type remaining struct {
	value   int64
	display string
	kind    string
}

// timeRemaining formats how long a secret has left at day, hour or minute
// granularity, never finer. Anything alive for under a minute still shows
// "1 minute".
func timeRemaining(ttl, now int64) remaining {
	if ttl == permanentTTL {
		return remaining{value: -1, display: "Permanent", kind: "permanent"}
	}

	secondsLeft := ttl - now
	if secondsLeft <= 0 {
		return remaining{value: 0, display: "Expired", kind: "expired"}
	}

	if days := secondsLeft / 86400; days >= 1 {
		return remaining{value: days, display: plural(days, "day"), kind: "days"}
	}
	if hours := secondsLeft / 3600; hours >= 1 {
		return remaining{value: hours, display: plural(hours, "hour"), kind: "hours"}
	}
	minutes := secondsLeft / 60
	if minutes < 1 {
		minutes = 1
	}
	return remaining{value: minutes, display: plural(minutes, "minute"), kind: "minutes"}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
