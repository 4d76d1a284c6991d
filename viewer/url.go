package viewer

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultBase is where the Lichtblick build is served when nothing
	// else is configured.
	DefaultBase = "/lichtblick"

	sourceParam      = "ds"
	sourceRemoteFile = "remote-file"
	sourceURLParam   = "ds.url"

	filePath  = "/api/file"
	pathParam = "path"
)

// Base normalizes a configured viewer base URL by dropping one trailing
// slash.
func Base(raw string) string {
	return strings.TrimSuffix(raw, "/")
}

// FileURL is the absolute download URL of relPath on the server at origin.
func FileURL(origin, relPath string) string {
	q := url.Values{pathParam: {relPath}}
	return strings.TrimSuffix(origin, "/") + filePath + "?" + q.Encode()
}

// BuildURL returns the viewer URL that opens paths, in the given order, as
// remote files. With no paths it is base itself.
func BuildURL(base, origin string, paths []string) string {
	base = Base(base)
	if len(paths) == 0 {
		return base
	}

	params := url.Values{}
	params.Set(sourceParam, sourceRemoteFile)
	for _, p := range paths {
		params.Add(sourceURLParam, FileURL(origin, p))
	}
	return base + "/?" + params.Encode()
}

// DecodeSelection extracts the file paths carried by a viewer URL built
// with BuildURL, in URL order.
func DecodeSelection(viewerURL string) ([]string, error) {
	_, rawQuery, ok := strings.Cut(viewerURL, "?")
	if !ok {
		return nil, nil
	}
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("parse viewer query: %w", err)
	}

	var paths []string
	for _, raw := range params[sourceURLParam] {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s entry: %w", sourceURLParam, err)
		}
		paths = append(paths, u.Query().Get(pathParam))
	}
	return paths, nil
}
