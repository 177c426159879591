// Package record defines the localized-text records derived from source files.
//
// # Kinds
//
// Message records come from extracted message descriptor files, which are
// JSON arrays written by the message extraction step:
//
//	[
//	  {
//	    "id": "home.title",
//	    "defaultMessage": "Welcome",
//	    "description": "Home page heading",
//	    "file": "src/pages/index.js",
//	    "start": {"line": 12, "column": 8},
//	    "end": {"line": 12, "column": 42}
//	  }
//	]
//
// Translation records come from user-authored translation files. The file
// name without extension is the language and the document is a flat object
// of key to string:
//
//	en.json: {"home.title": "Welcome", "greeting": "Hi"}
//
// # Identity
//
// Record ids are derived from (namespace, source file path, key) with a
// name-based UUID, so re-deriving a record from the same file and key always
// yields the same id and records from different files never collide.
//
// # Digest
//
// The digest is a content hash over the fields that carry meaning
// (value, description and referenced file for messages; value for
// translations). It is used for change detection only.
package record
