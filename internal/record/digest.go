package record

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// digestSeparator cannot appear in any single field by accident.
const digestSeparator = "\x1f"

// Digest computes the content hash of a record.
//
// Messages hash value, description and referenced file; translations hash
// the value only. Identity fields never participate.
func Digest(r *Record) string {
	var payload string
	switch r.Kind {
	case KindMessage:
		payload = r.Value + digestSeparator + r.Description + digestSeparator + r.File
	default:
		payload = r.Value
	}

	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Fingerprint hashes everything a sink stores for a record: the content
// digest plus locations, language and priority. Two records with equal
// fingerprints need not be written twice.
func Fingerprint(r *Record) string {
	digest := r.Digest
	if digest == "" {
		digest = Digest(r)
	}
	payload := strings.Join([]string{
		digest,
		formatLocation(r.Start),
		formatLocation(r.End),
		r.Language,
		strconv.Itoa(r.Priority),
	}, digestSeparator)

	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func formatLocation(loc *Location) string {
	if loc == nil {
		return "-"
	}
	return strconv.Itoa(loc.Line) + ":" + strconv.Itoa(loc.Column)
}
