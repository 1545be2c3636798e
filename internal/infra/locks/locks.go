// Package locks derives the Gold, Silver and Bronze identity hashes.
//
// Each tier digests an ordered, "|"-joined component list whose first entry is
// a version tag. Position carries meaning: a missing dimension contributes an
// empty string rather than being dropped. Gold reads hardware dimensions only,
// Silver reads software and codec dimensions only, and Bronze reads the Gold
// and Silver digests plus a few network fields.
package locks

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"identiscope/internal/domain"
)

const (
	GoldVersion   = "gold-v1"
	SilverVersion = "silver-v1"
	BronzeVersion = "bronze-v1"

	separator     = "|"
	listSeparator = ","
)

// Compute returns the three lock hashes. It accepts partial or empty input.
func Compute(fp domain.FingerprintSnapshot, net domain.NetworkSnapshot) domain.ThreeLockHashes {
	gold := digest(GoldComponents(fp))
	silver := digest(SilverComponents(fp))
	return domain.ThreeLockHashes{
		Gold:   gold,
		Silver: silver,
		Bronze: digest(BronzeComponents(gold, silver, net)),
	}
}

func GoldComponents(fp domain.FingerprintSnapshot) []string {
	return []string{
		GoldVersion,
		str(fp.HWCanvasHash),
		str(fp.HWWebGLHash),
		str(fp.HWWebGLVendor),
		str(fp.HWWebGLRenderer),
		str(fp.HWAudioHash),
		integer(fp.HWScreenWidth),
		integer(fp.HWScreenHeight),
		integer(fp.HWScreenAvailWidth),
		integer(fp.HWScreenAvailHeight),
		integer(fp.HWColorDepth),
		number(fp.HWPixelRatio),
		integer(fp.HWCPUCores),
		number(fp.HWDeviceMemory),
		integer(fp.HWMaxTouchPoints),
		str(fp.HWColorGamut),
		flag(fp.HWHDR),
		str(fp.HWGPUTier),
		integer(fp.HWWebGLMaxTextureSize),
		str(fp.HWWebGLExtensionsHash),
		number(fp.HWAudioSampleRate),
		integer(fp.HWAudioChannelCount),
	}
}

func SilverComponents(fp domain.FingerprintSnapshot) []string {
	return []string{
		SilverVersion,
		str(fp.SWUserAgent),
		str(fp.SWPlatform),
		str(fp.SWVendor),
		list(fp.SWLanguages),
		str(fp.SWLanguage),
		str(fp.SWTimezone),
		integer(fp.SWTimezoneOffset),
		list(fp.SWFonts),
		str(fp.SWFontsHash),
		list(fp.SWPlugins),
		flag(fp.SWDoNotTrack),
		flag(fp.SWCookiesEnabled),
		flag(fp.SWLocalStorage),
		flag(fp.SWSessionStorage),
		flag(fp.SWIndexedDB),
		flag(fp.SWWebdriver),
		flag(fp.SWPDFViewer),
		str(fp.SWMathHash),
		str(fp.SWSpeechVoicesHash),
		str(fp.SWPermissionsHash),
		flag(fp.SWReducedMotion),
		str(fp.SWColorScheme),
		flag(fp.SWForcedColors),
		str(fp.SWContrast),
		flag(fp.SWTouchSupport),
		str(fp.SWPointerType),
		str(fp.SWIntlLocale),
		str(fp.SWKeyboardLayoutHash),
		str(fp.SWStorageQuotaBucket),
		str(fp.CodecH264),
		str(fp.CodecH265),
		str(fp.CodecVP8),
		str(fp.CodecVP9),
		str(fp.CodecAV1),
		str(fp.CodecAAC),
		str(fp.CodecOpus),
		str(fp.CodecVorbis),
		str(fp.CodecFLAC),
		str(fp.CodecMP3),
		str(fp.CodecWebMVideo),
		str(fp.CodecMP4Video),
		str(fp.CodecOggAudio),
		str(fp.CodecWAVAudio),
	}
}

// BronzeComponents takes the already computed Gold and Silver digests; it
// never looks at raw client dimensions.
func BronzeComponents(gold, silver string, net domain.NetworkSnapshot) []string {
	return []string{
		BronzeVersion,
		gold,
		silver,
		net.IPHash,
		net.ASN,
		net.Country,
		net.TLSVersion,
		net.HTTPProtocol,
	}
}

func digest(components []string) string {
	sum := sha256.Sum256([]byte(strings.Join(components, separator)))
	return hex.EncodeToString(sum[:])
}

func str(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func integer(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func number(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func flag(v *bool) string {
	if v == nil {
		return ""
	}
	if *v {
		return "1"
	}
	return "0"
}

func list(v []string) string {
	if v == nil {
		return ""
	}
	return strings.Join(v, listSeparator)
}
