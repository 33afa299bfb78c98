// Package docid derives the deterministic document UID used as the key
// for postings and the doc-offset store.
package docid

import (
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// Derive computes the doc UID for a raw document per the data model:
// a namespace-qualified key when a namespace is available (an explicit
// source or lang field, or else the URL's hostname), falling back to
// the bare doc_id or URL when no namespace exists.
func Derive(docID, rawURL, source, lang string) string {
	ns := namespace(rawURL, source, lang)

	if ns == "" {
		if docID != "" {
			return docID
		}
		return rawURL
	}

	if docID != "" {
		return ns + ":" + docID
	}
	return ns + ":" + rawURL
}

// namespace resolves the namespace component: an explicit source or lang
// field takes precedence, otherwise the URL's hostname, IDNA-normalized
// so that an internationalized-domain hostname in a multilingual corpus
// doesn't fragment into multiple namespaces by Unicode representation.
func namespace(rawURL, source, lang string) string {
	if source != "" {
		return source
	}
	if lang != "" {
		return lang
	}
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := u.Hostname()
	if ascii, err := idna.ToASCII(host); err == nil {
		host = ascii
	}
	return strings.ToLower(host)
}
