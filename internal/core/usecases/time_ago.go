package usecases

import (
	"fmt"
	"time"
)

// TimeAgo renders the age of ts relative to now the way the record list shows
// it: "Baru saja" under a minute, then minutes, hours and days, and the
// day/month/year date once a week has passed. Timestamps in the future count
// as just now.
func TimeAgo(ts, now time.Time) string {
	minutes := int(now.Sub(ts) / time.Minute)
	switch {
	case minutes < 1:
		return "Baru saja"
	case minutes < 60:
		return fmt.Sprintf("%d menit yang lalu", minutes)
	}

	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%d jam yang lalu", hours)
	}
	if days := hours / 24; days < 7 {
		return fmt.Sprintf("%d hari yang lalu", days)
	}
	return ts.In(now.Location()).Format("2/1/2006")
}
