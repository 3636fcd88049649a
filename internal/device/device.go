// Package device turns a raw User-Agent string into the device block
// attached to stored messages.
package device

import (
	"strings"

	"github.com/mhkarimi/portfolio-backend/internal/model"
	"github.com/mssola/useragent"
)

// Parse never fails; an empty or unrecognized User-Agent yields the
// Unknown desktop block.
func Parse(uaString string) *model.DeviceInfo {
	if strings.TrimSpace(uaString) == "" {
		return unknownDevice()
	}

	ua := useragent.New(uaString)
	name, version := ua.Browser()

	info := &model.DeviceInfo{
		Browser:  strings.TrimSpace(name + " " + version),
		OS:       ua.OS(),
		Device:   ua.Platform(),
		IsMobile: ua.Mobile(),
		IsTablet: isTablet(uaString),
		IsBot:    ua.Bot(),
	}
	if info.Browser == "" {
		info.Browser = "Unknown"
	}
	if info.OS == "" {
		info.OS = "Unknown"
	}
	if info.Device == "" {
		info.Device = "Unknown"
	}
	info.IsPC = !info.IsMobile && !info.IsTablet && !info.IsBot
	return info
}

// isTablet is a heuristic; the parser itself only distinguishes mobile.
func isTablet(uaString string) bool {
	lower := strings.ToLower(uaString)
	return strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet")
}

func unknownDevice() *model.DeviceInfo {
	return &model.DeviceInfo{
		Browser: "Unknown",
		OS:      "Unknown",
		Device:  "Unknown",
		IsPC:    true,
	}
}
