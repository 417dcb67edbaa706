package service

import (
	"time"

	"github.com/mileusna/useragent"

	"github.com/noah-isme/legalbot-guard-api/internal/dto"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

func utcNow() time.Time {
	return time.Now().UTC()
}

func clampLimit(limit, ceiling int) int {
	if ceiling <= 0 {
		ceiling = maxListLimit
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}

// describeClient turns a raw user agent into the client summary shown with an activity.
func describeClient(raw string) dto.ClientInfo {
	ua := useragent.Parse(raw)
	device := "unknown"
	switch {
	case ua.Bot:
		device = "bot"
	case ua.Tablet:
		device = "tablet"
	case ua.Mobile:
		device = "mobile"
	case ua.Desktop:
		device = "desktop"
	}

	return dto.ClientInfo{
		Browser:        ua.Name,
		BrowserVersion: ua.Version,
		OS:             ua.OS,
		Device:         device,
		Bot:            ua.Bot,
	}
}
