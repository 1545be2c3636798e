package domain

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
)

// FingerprintSnapshot is one browser/device observation. Every typed field is
// optional; a nil pointer or nil slice means the collector did not report it.
// Fields the schema does not know about are kept in Extra.
type FingerprintSnapshot struct {
	// Hardware.
	HWCanvasHash          *string  `json:"hw_canvas_hash,omitempty" validate:"omitempty,max=128"`
	HWWebGLHash           *string  `json:"hw_webgl_hash,omitempty" validate:"omitempty,max=128"`
	HWWebGLVendor         *string  `json:"hw_webgl_vendor,omitempty" validate:"omitempty,max=512"`
	HWWebGLRenderer       *string  `json:"hw_webgl_renderer,omitempty" validate:"omitempty,max=512"`
	HWAudioHash           *string  `json:"hw_audio_hash,omitempty" validate:"omitempty,max=128"`
	HWScreenWidth         *int     `json:"hw_screen_width,omitempty" validate:"omitempty,gte=0,lte=16384"`
	HWScreenHeight        *int     `json:"hw_screen_height,omitempty" validate:"omitempty,gte=0,lte=16384"`
	HWScreenAvailWidth    *int     `json:"hw_screen_avail_width,omitempty" validate:"omitempty,gte=0,lte=16384"`
	HWScreenAvailHeight   *int     `json:"hw_screen_avail_height,omitempty" validate:"omitempty,gte=0,lte=16384"`
	HWColorDepth          *int     `json:"hw_color_depth,omitempty" validate:"omitempty,gte=0,lte=64"`
	HWPixelRatio          *float64 `json:"hw_pixel_ratio,omitempty" validate:"omitempty,gte=0,lte=16"`
	HWCPUCores            *int     `json:"hw_cpu_cores,omitempty" validate:"omitempty,gte=0,lte=1024"`
	HWDeviceMemory        *float64 `json:"hw_device_memory,omitempty" validate:"omitempty,gte=0,lte=1024"`
	HWMaxTouchPoints      *int     `json:"hw_max_touch_points,omitempty" validate:"omitempty,gte=0,lte=256"`
	HWColorGamut          *string  `json:"hw_color_gamut,omitempty" validate:"omitempty,max=32"`
	HWHDR                 *bool    `json:"hw_hdr,omitempty"`
	HWGPUTier             *string  `json:"hw_gpu_tier,omitempty" validate:"omitempty,max=32"`
	HWWebGLMaxTextureSize *int     `json:"hw_webgl_max_texture_size,omitempty" validate:"omitempty,gte=0,lte=131072"`
	HWWebGLExtensionsHash *string  `json:"hw_webgl_extensions_hash,omitempty" validate:"omitempty,max=128"`
	HWAudioSampleRate     *float64 `json:"hw_audio_sample_rate,omitempty" validate:"omitempty,gte=0,lte=768000"`
	HWAudioChannelCount   *int     `json:"hw_audio_channel_count,omitempty" validate:"omitempty,gte=0,lte=64"`

	// Software.
	SWUserAgent          *string  `json:"sw_user_agent,omitempty" validate:"omitempty,max=512"`
	SWPlatform           *string  `json:"sw_platform,omitempty" validate:"omitempty,max=128"`
	SWVendor             *string  `json:"sw_vendor,omitempty" validate:"omitempty,max=128"`
	SWLanguages          []string `json:"sw_languages,omitempty" validate:"omitempty,max=64,dive,max=35"`
	SWLanguage           *string  `json:"sw_language,omitempty" validate:"omitempty,max=35"`
	SWTimezone           *string  `json:"sw_timezone,omitempty" validate:"omitempty,max=64"`
	SWTimezoneOffset     *int     `json:"sw_timezone_offset,omitempty" validate:"omitempty,gte=-900,lte=900"`
	SWFonts              []string `json:"sw_fonts,omitempty" validate:"omitempty,max=512,dive,max=128"`
	SWFontsHash          *string  `json:"sw_fonts_hash,omitempty" validate:"omitempty,max=128"`
	SWPlugins            []string `json:"sw_plugins,omitempty" validate:"omitempty,max=128,dive,max=128"`
	SWDoNotTrack         *bool    `json:"sw_do_not_track,omitempty"`
	SWCookiesEnabled     *bool    `json:"sw_cookies_enabled,omitempty"`
	SWLocalStorage       *bool    `json:"sw_local_storage,omitempty"`
	SWSessionStorage     *bool    `json:"sw_session_storage,omitempty"`
	SWIndexedDB          *bool    `json:"sw_indexed_db,omitempty"`
	SWWebdriver          *bool    `json:"sw_webdriver,omitempty"`
	SWPDFViewer          *bool    `json:"sw_pdf_viewer,omitempty"`
	SWMathHash           *string  `json:"sw_math_hash,omitempty" validate:"omitempty,max=128"`
	SWSpeechVoicesHash   *string  `json:"sw_speech_voices_hash,omitempty" validate:"omitempty,max=128"`
	SWPermissionsHash    *string  `json:"sw_permissions_hash,omitempty" validate:"omitempty,max=128"`
	SWReducedMotion      *bool    `json:"sw_reduced_motion,omitempty"`
	SWColorScheme        *string  `json:"sw_color_scheme,omitempty" validate:"omitempty,max=32"`
	SWForcedColors       *bool    `json:"sw_forced_colors,omitempty"`
	SWContrast           *string  `json:"sw_contrast,omitempty" validate:"omitempty,max=32"`
	SWTouchSupport       *bool    `json:"sw_touch_support,omitempty"`
	SWPointerType        *string  `json:"sw_pointer_type,omitempty" validate:"omitempty,max=32"`
	SWIntlLocale         *string  `json:"sw_intl_locale,omitempty" validate:"omitempty,max=64"`
	SWKeyboardLayoutHash *string  `json:"sw_keyboard_layout_hash,omitempty" validate:"omitempty,max=128"`
	SWStorageQuotaBucket *string  `json:"sw_storage_quota_bucket,omitempty" validate:"omitempty,max=32"`

	// Media codec support ("probably", "maybe" or "").
	CodecH264      *string `json:"codec_h264,omitempty" validate:"omitempty,max=16"`
	CodecH265      *string `json:"codec_h265,omitempty" validate:"omitempty,max=16"`
	CodecVP8       *string `json:"codec_vp8,omitempty" validate:"omitempty,max=16"`
	CodecVP9       *string `json:"codec_vp9,omitempty" validate:"omitempty,max=16"`
	CodecAV1       *string `json:"codec_av1,omitempty" validate:"omitempty,max=16"`
	CodecAAC       *string `json:"codec_aac,omitempty" validate:"omitempty,max=16"`
	CodecOpus      *string `json:"codec_opus,omitempty" validate:"omitempty,max=16"`
	CodecVorbis    *string `json:"codec_vorbis,omitempty" validate:"omitempty,max=16"`
	CodecFLAC      *string `json:"codec_flac,omitempty" validate:"omitempty,max=16"`
	CodecMP3       *string `json:"codec_mp3,omitempty" validate:"omitempty,max=16"`
	CodecWebMVideo *string `json:"codec_webm_video,omitempty" validate:"omitempty,max=16"`
	CodecMP4Video  *string `json:"codec_mp4_video,omitempty" validate:"omitempty,max=16"`
	CodecOggAudio  *string `json:"codec_ogg_audio,omitempty" validate:"omitempty,max=16"`
	CodecWAVAudio  *string `json:"codec_wav_audio,omitempty" validate:"omitempty,max=16"`

	// Lie / spoof flags.
	LieUserAgent           *bool `json:"lie_user_agent,omitempty"`
	LiePlatform            *bool `json:"lie_platform,omitempty"`
	LieLanguages           *bool `json:"lie_languages,omitempty"`
	LieTimezone            *bool `json:"lie_timezone,omitempty"`
	LieScreen              *bool `json:"lie_screen,omitempty"`
	LieCanvas              *bool `json:"lie_canvas,omitempty"`
	LieWebGL               *bool `json:"lie_webgl,omitempty"`
	LieAudio               *bool `json:"lie_audio,omitempty"`
	LieFonts               *bool `json:"lie_fonts,omitempty"`
	LieHardwareConcurrency *bool `json:"lie_hardware_concurrency,omitempty"`
	LieDeviceMemory        *bool `json:"lie_device_memory,omitempty"`
	LieTouch               *bool `json:"lie_touch,omitempty"`

	Extra map[string]json.RawMessage `json:"-" validate:"omitempty,max=64"`
}

type fingerprintAlias FingerprintSnapshot

var knownFingerprintKeys = jsonFieldNames(reflect.TypeOf(FingerprintSnapshot{}))

var foldedFingerprintKeys = foldKeys(knownFingerprintKeys)

// UnmarshalJSON splits known and unknown keys. encoding/json matches field
// names case-insensitively, so a key that differs from a known name only in
// case is rejected rather than allowed to overwrite the typed field.
func (f *FingerprintSnapshot) UnmarshalJSON(data []byte) error {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	var caseErrs []FieldError
	for key := range all {
		if _, ok := knownFingerprintKeys[key]; ok {
			continue
		}
		if canonical, ok := foldedFingerprintKeys[strings.ToLower(key)]; ok {
			caseErrs = append(caseErrs, FieldError{Field: key, Rule: "case", Message: "field name must be " + canonical})
		}
	}
	if len(caseErrs) > 0 {
		sort.Slice(caseErrs, func(i, j int) bool { return caseErrs[i].Field < caseErrs[j].Field })
		return &ValidationError{Fields: caseErrs}
	}
	var core fingerprintAlias
	if err := json.Unmarshal(data, &core); err != nil {
		return err
	}
	for key := range all {
		if _, ok := knownFingerprintKeys[key]; ok {
			delete(all, key)
		}
	}
	*f = FingerprintSnapshot(core)
	if len(all) > 0 {
		f.Extra = all
	}
	return nil
}

func (f FingerprintSnapshot) MarshalJSON() ([]byte, error) {
	core, err := json.Marshal(fingerprintAlias(f))
	if err != nil || len(f.Extra) == 0 {
		return core, err
	}
	merged := make(map[string]json.RawMessage)
	if err := json.Unmarshal(core, &merged); err != nil {
		return nil, err
	}
	for key, value := range f.Extra {
		if _, exists := merged[key]; !exists {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// Lies returns the reported lie flags keyed by name without the lie_ prefix.
func (f FingerprintSnapshot) Lies() map[string]bool {
	flags := map[string]*bool{
		"user_agent":           f.LieUserAgent,
		"platform":             f.LiePlatform,
		"languages":            f.LieLanguages,
		"timezone":             f.LieTimezone,
		"screen":               f.LieScreen,
		"canvas":               f.LieCanvas,
		"webgl":                f.LieWebGL,
		"audio":                f.LieAudio,
		"fonts":                f.LieFonts,
		"hardware_concurrency": f.LieHardwareConcurrency,
		"device_memory":        f.LieDeviceMemory,
		"touch":                f.LieTouch,
	}
	out := make(map[string]bool, len(flags))
	for name, flag := range flags {
		if flag != nil {
			out[name] = *flag
		}
	}
	return out
}

// KnownFingerprintKeys lists the JSON names of the typed schema, sorted.
func KnownFingerprintKeys() []string {
	keys := make([]string, 0, len(knownFingerprintKeys))
	for key := range knownFingerprintKeys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func foldKeys(keys map[string]struct{}) map[string]string {
	out := make(map[string]string, len(keys))
	for key := range keys {
		out[strings.ToLower(key)] = key
	}
	return out
}

func jsonFieldNames(t reflect.Type) map[string]struct{} {
	out := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name := strings.Split(t.Field(i).Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		out[name] = struct{}{}
	}
	return out
}
