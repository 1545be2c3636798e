package usecase

import (
	"strconv"
	"strings"

	"identiscope/internal/domain"

	"github.com/mssola/useragent"
)

const (
	deviceMobile  = "mobile"
	deviceTablet  = "tablet"
	deviceDesktop = "desktop"
	unknownValue  = "unknown"
)

// DeriveVisitMeta builds the display columns stored next to each visit.
func DeriveVisitMeta(fp domain.FingerprintSnapshot, net domain.NetworkSnapshot) domain.VisitMeta {
	meta := domain.VisitMeta{
		Browser:    unknownValue,
		OS:         unknownValue,
		DeviceType: deviceType(fp),
		Country:    strings.ToUpper(net.Country),
		Screen:     screen(fp),
		GPUVendor:  truncate(deref(fp.HWWebGLVendor), 128),
	}
	if ua := deref(fp.SWUserAgent); ua != "" {
		parsed := useragent.New(ua)
		if name, _ := parsed.Browser(); name != "" {
			meta.Browser = truncate(name, 64)
		}
		if info := parsed.OSInfo(); info.Name != "" {
			meta.OS = truncate(info.Name, 64)
		}
		if parsed.Mobile() && meta.DeviceType == deviceDesktop {
			meta.DeviceType = deviceMobile
		}
	}
	return meta
}

func deviceType(fp domain.FingerprintSnapshot) string {
	touch := fp.HWMaxTouchPoints != nil && *fp.HWMaxTouchPoints > 0
	width := 0
	if fp.HWScreenWidth != nil {
		width = *fp.HWScreenWidth
	}
	switch {
	case touch && width > 0 && width < 768:
		return deviceMobile
	case touch && width >= 768 && width <= 1366:
		return deviceTablet
	default:
		return deviceDesktop
	}
}

func screen(fp domain.FingerprintSnapshot) string {
	if fp.HWScreenWidth == nil || fp.HWScreenHeight == nil {
		return ""
	}
	return strconv.Itoa(*fp.HWScreenWidth) + "x" + strconv.Itoa(*fp.HWScreenHeight)
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func truncate(value string, max int) string {
	return domain.TruncateUTF8(value, max)
}
