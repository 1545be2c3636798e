package domain

// NetworkSnapshot holds the signals observed by the edge for one request.
// It is never decoded from the client body.
type NetworkSnapshot struct {
	IPHash       string `json:"net_ip_hash,omitempty"`
	ASN          string `json:"net_asn,omitempty"`
	ASOrg        string `json:"net_as_org,omitempty"`
	Colo         string `json:"net_colo,omitempty"`
	Country      string `json:"net_country,omitempty"`
	Region       string `json:"net_region,omitempty"`
	City         string `json:"net_city,omitempty"`
	Continent    string `json:"net_continent,omitempty"`
	TLSVersion   string `json:"net_tls_version,omitempty"`
	TLSCipher    string `json:"net_tls_cipher,omitempty"`
	HTTPProtocol string `json:"net_http_protocol,omitempty"`
	RTTMillis    *int   `json:"net_rtt_ms,omitempty"`
	BotScore     *int   `json:"net_bot_score,omitempty"`
}
