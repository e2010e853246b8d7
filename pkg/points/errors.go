package points

import "errors"

var (
	// ErrPermissionDenied means the user declined location access
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrLocationUnavailable means the provider could not produce a position
	ErrLocationUnavailable = errors.New("location unavailable")
	// ErrCatalogFetchFailed means the category list could not be fetched
	ErrCatalogFetchFailed = errors.New("catalog fetch failed")
	// ErrPointSearchFailed means a collection point search failed
	ErrPointSearchFailed = errors.New("point search failed")
)
