package ingestion

import (
	"path"
	"strings"
	"time"
)

// FileInfo describes one discovered feed file
type FileInfo struct {
	Path       string
	Name       string
	Size       int64
	ModifiedAt *time.Time
}

// PathIdentifiers are the provider keys derived from a feed file path.
// They are authoritative and override anything in the JSON body.
type PathIdentifiers struct {
	CruiseLineID   string
	ShipID         string
	CodeToCruiseID string
}

// Complete reports whether all three identifiers are present
func (p PathIdentifiers) Complete() bool {
	return p.CruiseLineID != "" && p.ShipID != "" && p.CodeToCruiseID != ""
}

// ParseFilePath extracts provider identifiers from a feed path of the
// form /YYYY/MM/LINE/SHIP/CODE.json. Missing segments yield empty fields;
// callers reject incomplete triples.
func ParseFilePath(filePath string) PathIdentifiers {
	clean := strings.Trim(path.Clean("/"+filePath), "/")
	parts := strings.Split(clean, "/")
	if len(parts) < 5 {
		return PathIdentifiers{}
	}
	// Take the trailing segments so a mount prefix ahead of the year
	// directory does not shift the layout.
	n := len(parts)
	code := parts[n-1]
	code = strings.TrimSuffix(code, path.Ext(code))
	return PathIdentifiers{
		CruiseLineID:   parts[n-3],
		ShipID:         parts[n-2],
		CodeToCruiseID: code,
	}
}
