// Package geoip resolves country and network ownership for a client address
// from MaxMind MMDB files. It backs the edge provider when the edge did not
// supply those fields.
package geoip

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strconv"
	"sync"

	"identiscope/internal/observability/logging"

	"github.com/oschwald/maxminddb-golang/v2"
)

// Record is the subset of GeoLite2 City/Country and ASN fields we use.
type Record struct {
	Country   string
	Continent string
	Region    string
	City      string
	ASN       string
	ASOrg     string
}

func (r Record) Empty() bool {
	return r == Record{}
}

type locationRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	Continent struct {
		Code string `maxminddb:"code"`
	} `maxminddb:"continent"`
	Subdivisions []struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"subdivisions"`
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
}

type asnRecord struct {
	Number       uint32 `maxminddb:"autonomous_system_number"`
	Organization string `maxminddb:"autonomous_system_organization"`
}

type Config struct {
	LocationPath string
	ASNPath      string
	Logger       *slog.Logger
}

// DB holds the location and ASN readers. Either may be absent. Reload swaps
// readers in place so lookups never see a closed reader.
type DB struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.RWMutex
	location *maxminddb.Reader
	asn      *maxminddb.Reader
}

func Open(cfg Config) (*DB, error) {
	if cfg.LocationPath == "" && cfg.ASNPath == "" {
		return nil, errors.New("geoip: no database path configured")
	}
	db := &DB{cfg: cfg, logger: logging.OrDefault(cfg.Logger)}
	if err := db.Reload(); err != nil {
		return nil, err
	}
	return db, nil
}

// Reload reopens every configured database file.
func (db *DB) Reload() error {
	if db == nil {
		return nil
	}
	location, err := openReader(db.cfg.LocationPath)
	if err != nil {
		return err
	}
	asn, err := openReader(db.cfg.ASNPath)
	if err != nil {
		if location != nil {
			location.Close()
		}
		return err
	}

	db.mu.Lock()
	oldLocation, oldASN := db.location, db.asn
	db.location, db.asn = location, asn
	db.mu.Unlock()

	if oldLocation != nil {
		oldLocation.Close()
	}
	if oldASN != nil {
		oldASN.Close()
	}
	if location != nil {
		db.logger.Info("geoip: database loaded", "path", db.cfg.LocationPath, "type", location.Metadata.DatabaseType)
	}
	if asn != nil {
		db.logger.Info("geoip: database loaded", "path", db.cfg.ASNPath, "type", asn.Metadata.DatabaseType)
	}
	return nil
}

func openReader(path string) (*maxminddb.Reader, error) {
	if path == "" {
		return nil, nil
	}
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening geoip database %s: %w", path, err)
	}
	return reader, nil
}

// Lookup returns what the databases know about addr. Unknown or private
// addresses yield an empty record.
func (db *DB) Lookup(addr netip.Addr) Record {
	var out Record
	if db == nil || !addr.IsValid() {
		return out
	}
	addr = addr.Unmap()

	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.location != nil {
		var rec locationRecord
		if err := db.location.Lookup(addr).Decode(&rec); err == nil {
			out.Country = rec.Country.ISOCode
			out.Continent = rec.Continent.Code
			if len(rec.Subdivisions) > 0 {
				out.Region = rec.Subdivisions[0].ISOCode
			}
			out.City = rec.City.Names["en"]
		}
	}
	if db.asn != nil {
		var rec asnRecord
		if err := db.asn.Lookup(addr).Decode(&rec); err == nil && rec.Number != 0 {
			out.ASN = strconv.FormatUint(uint64(rec.Number), 10)
			out.ASOrg = rec.Organization
		}
	}
	return out
}

func (db *DB) Close() error {
	if db == nil {
		return nil
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	var firstErr error
	for _, r := range []*maxminddb.Reader{db.location, db.asn} {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	db.location, db.asn = nil, nil
	return firstErr
}
