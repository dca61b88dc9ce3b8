package auth

import "strings"

// DeviceType is a coarse classification of the client device.
type DeviceType string

const (
	DeviceDesktop DeviceType = "desktop"
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceUnknown DeviceType = "unknown"
)

// ClassifyDevice maps a User-Agent header to a device type. Best-effort
// substring matching, informational only; it never gates authorization.
func ClassifyDevice(userAgent string) DeviceType {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" {
		return DeviceUnknown
	}
	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return DeviceTablet
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "iphone") ||
		strings.Contains(ua, "android"):
		return DeviceMobile
	case strings.Contains(ua, "windows") || strings.Contains(ua, "macintosh") ||
		strings.Contains(ua, "linux") || strings.Contains(ua, "x11"):
		return DeviceDesktop
	default:
		return DeviceUnknown
	}
}
