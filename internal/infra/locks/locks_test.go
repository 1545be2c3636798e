package locks

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"identiscope/internal/domain"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func strPtr(v string) *string     { return &v }
func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func sampleFingerprint() domain.FingerprintSnapshot {
	return domain.FingerprintSnapshot{
		HWCanvasHash:     strPtr("abc"),
		HWCPUCores:       intPtr(8),
		HWPixelRatio:     floatPtr(1.5),
		HWScreenWidth:    intPtr(1920),
		HWScreenHeight:   intPtr(1080),
		HWHDR:            boolPtr(false),
		SWUserAgent:      strPtr("Mozilla/5.0 (X11; Linux x86_64) Firefox/128.0"),
		SWTimezone:       strPtr("Europe/Berlin"),
		SWLanguages:      []string{"de-DE", "en-US"},
		SWFonts:          []string{"Arial", "DejaVu Sans"},
		SWCookiesEnabled: boolPtr(true),
		CodecVP9:         strPtr("probably"),
		LieCanvas:        boolPtr(true),
	}
}

func sampleNetwork() domain.NetworkSnapshot {
	return domain.NetworkSnapshot{
		IPHash:       "iphash",
		ASN:          "3320",
		Country:      "DE",
		TLSVersion:   "TLSv1.3",
		HTTPProtocol: "HTTP/2",
	}
}

func TestCompute_Deterministic(t *testing.T) {
	first := Compute(sampleFingerprint(), sampleNetwork())
	second := Compute(sampleFingerprint(), sampleNetwork())
	if first != second {
		t.Fatalf("expected identical hashes, got %+v and %+v", first, second)
	}
	for name, value := range map[string]string{"gold": first.Gold, "silver": first.Silver, "bronze": first.Bronze} {
		if !hexDigest.MatchString(value) {
			t.Fatalf("%s is not a 64 char hex digest: %q", name, value)
		}
	}
}

func TestCompute_EmptyInput(t *testing.T) {
	hashes := Compute(domain.FingerprintSnapshot{}, domain.NetworkSnapshot{})
	if !hexDigest.MatchString(hashes.Gold) || !hexDigest.MatchString(hashes.Silver) || !hexDigest.MatchString(hashes.Bronze) {
		t.Fatalf("unexpected hashes for empty input: %+v", hashes)
	}
	emptyGold := "gold-v1" + strings.Repeat("|", len(GoldComponents(domain.FingerprintSnapshot{}))-1)
	sum := sha256.Sum256([]byte(emptyGold))
	if hashes.Gold != hex.EncodeToString(sum[:]) {
		t.Fatalf("missing fields must normalize to empty positions")
	}
}

func TestCompute_HardwareChangeOnlyMovesGold(t *testing.T) {
	base := Compute(sampleFingerprint(), sampleNetwork())
	fp := sampleFingerprint()
	fp.HWCPUCores = intPtr(16)
	changed := Compute(fp, sampleNetwork())
	if changed.Gold == base.Gold {
		t.Fatal("expected gold to change")
	}
	if changed.Silver != base.Silver {
		t.Fatal("silver must not depend on hardware fields")
	}
}

func TestCompute_SoftwareChangeOnlyMovesSilver(t *testing.T) {
	base := Compute(sampleFingerprint(), sampleNetwork())
	fp := sampleFingerprint()
	fp.SWTimezone = strPtr("America/New_York")
	changed := Compute(fp, sampleNetwork())
	if changed.Silver == base.Silver {
		t.Fatal("expected silver to change")
	}
	if changed.Gold != base.Gold {
		t.Fatal("gold must not depend on software fields")
	}

	fp = sampleFingerprint()
	fp.CodecVP9 = strPtr("")
	codec := Compute(fp, sampleNetwork())
	if codec.Silver == base.Silver || codec.Gold != base.Gold {
		t.Fatal("codec support belongs to silver only")
	}
}

func TestCompute_NetworkChangeOnlyMovesBronze(t *testing.T) {
	base := Compute(sampleFingerprint(), sampleNetwork())
	net := sampleNetwork()
	net.ASN = "13335"
	changed := Compute(sampleFingerprint(), net)
	if changed.Bronze == base.Bronze {
		t.Fatal("expected bronze to change")
	}
	if changed.Gold != base.Gold || changed.Silver != base.Silver {
		t.Fatal("gold and silver must not depend on network fields")
	}
}

func TestCompute_BronzeComposesGoldAndSilver(t *testing.T) {
	hashes := Compute(sampleFingerprint(), sampleNetwork())
	expected := digest(BronzeComponents(hashes.Gold, hashes.Silver, sampleNetwork()))
	if hashes.Bronze != expected {
		t.Fatal("bronze must be derived from gold, silver and network fields")
	}
}

func TestCompute_IgnoresLiesExtrasAndVolatileNetwork(t *testing.T) {
	base := Compute(sampleFingerprint(), sampleNetwork())

	fp := sampleFingerprint()
	fp.LieCanvas = boolPtr(false)
	fp.Extra = map[string]json.RawMessage{"hw_unlisted": json.RawMessage(`"x"`)}
	net := sampleNetwork()
	net.RTTMillis = intPtr(42)
	net.BotScore = intPtr(3)
	net.Colo = "FRA"
	net.TLSCipher = "TLS_AES_128_GCM_SHA256"
	if got := Compute(fp, net); got != base {
		t.Fatalf("lie flags and volatile network fields must not affect hashes")
	}
}

func TestNormalization(t *testing.T) {
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"nil string", str(nil), ""},
		{"true", flag(boolPtr(true)), "1"},
		{"false", flag(boolPtr(false)), "0"},
		{"nil bool", flag(nil), ""},
		{"int", integer(intPtr(8)), "8"},
		{"float whole", number(floatPtr(2)), "2"},
		{"float fraction", number(floatPtr(1.25)), "1.25"},
		{"list", list([]string{"a", "b"}), "a,b"},
		{"nil list", list(nil), ""},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, tc.got)
		}
	}
}
