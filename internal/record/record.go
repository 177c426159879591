package record

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/language"
)

// Kind identifies the record family a source produces.
type Kind string

const (
	// KindMessage is an extracted message descriptor.
	KindMessage Kind = "message"
	// KindTranslation is an entry of a translation file.
	KindTranslation Kind = "translation"
)

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindMessage || k == KindTranslation
}

// ParseKind converts a configuration value to a Kind.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.Valid()
}

// Location is a position in a source file.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Record is a unit of localized content.
type Record struct {
	// ===== Identity =====
	ID        string `json:"id"`
	Kind      Kind   `json:"kind"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`

	// ===== Content =====
	Value string `json:"value"`

	// ===== Message metadata =====
	Description string    `json:"description,omitempty"`
	File        string    `json:"file,omitempty"`
	Start       *Location `json:"start,omitempty"`
	End         *Location `json:"end,omitempty"`

	// ===== Translation metadata =====
	Language string `json:"language,omitempty"`
	Priority int    `json:"priority,omitempty"`

	// ===== Provenance =====
	SourcePath string `json:"source_path"`
	Digest     string `json:"digest"`
}

// Source describes the file records are being derived from.
type Source struct {
	// Namespace scopes record ids; it is the owning source instance name.
	Namespace string
	// Path is the absolute path of the file.
	Path string
	// Priority is copied onto translation records.
	Priority int
}

// Language returns the language of a translation file: its base name
// without extension, canonicalized when it is a valid BCP 47 tag.
func (s Source) Language() string {
	return LanguageFromPath(s.Path)
}

// LanguageFromPath derives a language tag from a translation file name.
// "translations/en.json" yields "en", "pt-br.yaml" yields "pt-BR".
func LanguageFromPath(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if tag, err := language.Parse(name); err == nil {
		return tag.String()
	}
	return name
}

var rootNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("i18nsync"))

// NewID derives the stable record id for key in the file at path.
func NewID(namespace, path, key string) string {
	ns := uuid.NewSHA1(rootNamespace, []byte(namespace))
	return uuid.NewSHA1(ns, []byte(path+"\x00"+key)).String()
}

// finalize fills the derived fields of a validated record.
func (r *Record) finalize(kind Kind, src Source) {
	r.Kind = kind
	r.Namespace = src.Namespace
	r.SourcePath = src.Path
	r.ID = NewID(src.Namespace, src.Path, r.Key)
	r.Digest = Digest(r)
}

// Extract validates a parsed document of the given kind and returns the
// records it yields. Any violation fails the whole document: records is nil
// and violations lists every problem found.
func Extract(kind Kind, doc any, src Source) (records []*Record, violations []string) {
	switch kind {
	case KindMessage:
		return ExtractMessages(doc, src)
	case KindTranslation:
		return ExtractTranslations(doc, src)
	default:
		return nil, []string{"unknown record kind " + string(kind)}
	}
}
