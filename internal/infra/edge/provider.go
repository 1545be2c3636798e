// Package edge builds the NetworkSnapshot for a request from connection state
// and headers set by the trusted edge proxy. Nothing here is read from the
// request body.
package edge

import (
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"net/http"
	"net/netip"
	"strconv"
	"strings"

	"identiscope/internal/domain"
	"identiscope/internal/infra/geoip"
)

const (
	HeaderConnectingIP = "CF-Connecting-IP"
	HeaderCountry      = "CF-IPCountry"
	HeaderForwardedFor = "X-Forwarded-For"
	HeaderASN          = "X-Edge-ASN"
	HeaderASOrg        = "X-Edge-AS-Org"
	HeaderColo         = "X-Edge-Colo"
	HeaderRegion       = "X-Edge-Region"
	HeaderCity         = "X-Edge-City"
	HeaderContinent    = "X-Edge-Continent"
	HeaderTLSVersion   = "X-Edge-TLS-Version"
	HeaderTLSCipher    = "X-Edge-TLS-Cipher"
	HeaderHTTPProtocol = "X-Edge-HTTP-Protocol"
	HeaderRTT          = "X-Edge-RTT"
	HeaderBotScore     = "X-Edge-Bot-Score"

	maxHeaderValue = 128
)

type GeoLookup interface {
	Lookup(addr netip.Addr) geoip.Record
}

type Config struct {
	// IPSalt is mixed into the client IP before hashing.
	IPSalt string
	// TrustHeaders enables the edge headers. Leave it off when the service is
	// reachable without the proxy in front.
	TrustHeaders bool
	GeoIP        GeoLookup
}

type Provider struct {
	salt    string
	trusted bool
	geo     GeoLookup
}

func NewProvider(cfg Config) *Provider {
	return &Provider{salt: cfg.IPSalt, trusted: cfg.TrustHeaders, geo: cfg.GeoIP}
}

// ClientIP returns the address the request is attributed to.
func (p *Provider) ClientIP(r *http.Request) netip.Addr {
	if p != nil && p.trusted {
		if addr, ok := NormalizeIP(r.Header.Get(HeaderConnectingIP)); ok {
			return addr
		}
		if fwd := r.Header.Get(HeaderForwardedFor); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if addr, ok := NormalizeIP(first); ok {
				return addr
			}
		}
	}
	addr, _ := NormalizeIP(r.RemoteAddr)
	return addr
}

// HashIP returns the salted sha256 hex digest of addr, or "" when invalid.
func (p *Provider) HashIP(addr netip.Addr) string {
	if !addr.IsValid() {
		return ""
	}
	salt := ""
	if p != nil {
		salt = p.salt
	}
	sum := sha256.Sum256([]byte(salt + addr.String()))
	return hex.EncodeToString(sum[:])
}

func (p *Provider) Snapshot(r *http.Request) domain.NetworkSnapshot {
	addr := p.ClientIP(r)
	snap := domain.NetworkSnapshot{
		IPHash:       p.HashIP(addr),
		HTTPProtocol: r.Proto,
	}
	if r.TLS != nil {
		snap.TLSVersion = tls.VersionName(r.TLS.Version)
		snap.TLSCipher = tls.CipherSuiteName(r.TLS.CipherSuite)
	}

	if p != nil && p.trusted {
		h := r.Header
		snap.Country = normalizeCountry(h.Get(HeaderCountry))
		snap.ASN = header(h, HeaderASN)
		snap.ASOrg = header(h, HeaderASOrg)
		snap.Colo = header(h, HeaderColo)
		snap.Region = header(h, HeaderRegion)
		snap.City = header(h, HeaderCity)
		snap.Continent = header(h, HeaderContinent)
		if v := header(h, HeaderTLSVersion); v != "" {
			snap.TLSVersion = v
		}
		if v := header(h, HeaderTLSCipher); v != "" {
			snap.TLSCipher = v
		}
		if v := header(h, HeaderHTTPProtocol); v != "" {
			snap.HTTPProtocol = v
		}
		snap.RTTMillis = intHeader(h, HeaderRTT)
		snap.BotScore = intHeader(h, HeaderBotScore)
	}

	if p != nil && p.geo != nil && (snap.Country == "" || snap.ASN == "") {
		rec := p.geo.Lookup(addr)
		if snap.Country == "" {
			snap.Country = rec.Country
			snap.Continent = firstNonEmpty(snap.Continent, rec.Continent)
			snap.Region = firstNonEmpty(snap.Region, rec.Region)
			snap.City = firstNonEmpty(snap.City, rec.City)
		}
		if snap.ASN == "" {
			snap.ASN = rec.ASN
			snap.ASOrg = firstNonEmpty(snap.ASOrg, rec.ASOrg)
		}
	}
	return snap
}

func header(h http.Header, name string) string {
	v := strings.TrimSpace(h.Get(name))
	return domain.TruncateUTF8(v, maxHeaderValue)
}

func intHeader(h http.Header, name string) *int {
	v := header(h, name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

// normalizeCountry drops the edge's placeholder codes for unknown and Tor.
func normalizeCountry(v string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	switch v {
	case "", "XX", "T1":
		return ""
	}
	if len(v) != 2 {
		return ""
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
