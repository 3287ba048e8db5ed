package mqttpresence

import (
	"fmt"
	"strings"
)

// URIScheme is the uri scheme this fetcher claims.
const URIScheme = "mqtt:"

// Topic leaves for the two event kinds.
const (
	leafPresence = "presence"
	leafNote     = "note"
)

// idFromURI extracts the presentity id from an "mqtt:<id>" uri. The id must
// be non-empty and must not contain '/', which would break topic routing.
func idFromURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, URIScheme) {
		return "", fmt.Errorf("uri %q does not have the %q scheme", uri, URIScheme)
	}
	id := uri[len(URIScheme):]
	if id == "" {
		return "", fmt.Errorf("uri %q has an empty id", uri)
	}
	if strings.ContainsRune(id, '/') {
		return "", fmt.Errorf("uri %q contains '/' in its id", uri)
	}
	return id, nil
}

// topicsForURI returns the presence and note topics for a uri.
func topicsForURI(prefix, uri string) (presenceTopic, noteTopic string, err error) {
	id, err := idFromURI(uri)
	if err != nil {
		return "", "", err
	}
	presenceTopic = prefix + "/" + id + "/" + leafPresence
	noteTopic = prefix + "/" + id + "/" + leafNote
	return presenceTopic, noteTopic, nil
}

// uriFromTopic maps a broker topic back to the uri and the event leaf
// ("presence" or "note").
func uriFromTopic(prefix, topic string) (uri, leaf string, err error) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return "", "", fmt.Errorf("topic %q is outside prefix %q", topic, prefix)
	}
	id, leaf, ok := strings.Cut(rest, "/")
	if !ok || id == "" || (leaf != leafPresence && leaf != leafNote) {
		return "", "", fmt.Errorf("topic %q does not match <prefix>/<id>/{presence,note}", topic)
	}
	return URIScheme + id, leaf, nil
}
