package models

// HomeBufferRadiusM is the fixed visibility buffer around a home claim:
// one mile.
const HomeBufferRadiusM = 1609.0

// VisibilityQuery is the ephemeral per-request input: an authenticated user's
// live position and bubble radius. Interface order is (lat, lon); the spatial
// store works in (lon, lat).
type VisibilityQuery struct {
	// No "required" binding on coordinates: 0 is a legal value (equator,
	// prime meridian) and gin's required tag rejects zero values. Range
	// checks happen in the service.
	Lat     float64 `form:"lat" json:"lat"`
	Lon     float64 `form:"lon" json:"lon"`
	RadiusM float64 `form:"radius_m" json:"radius_m" binding:"required"`
}

// BoundingBox is an optional fog reference region. Min must be strictly less
// than Max on both axes.
type BoundingBox struct {
	MinLon float64 `form:"min_lon" json:"min_lon"`
	MinLat float64 `form:"min_lat" json:"min_lat"`
	MaxLon float64 `form:"max_lon" json:"max_lon"`
	MaxLat float64 `form:"max_lat" json:"max_lat"`
}

// Valid reports whether the box is well formed.
func (b BoundingBox) Valid() bool {
	return b.MinLon < b.MaxLon && b.MinLat < b.MaxLat &&
		b.MinLon >= -180 && b.MaxLon <= 180 &&
		b.MinLat >= -90 && b.MaxLat <= 90
}

// VisibilityResult is the union of all visibility sources.
type VisibilityResult struct {
	VisibleGeoJSON string `json:"visible_geojson"`
	SourceCount    int    `json:"source_count"`
}

// FogResult is the complement of the visible union within the reference
// region. An empty region is a valid result when visibility covers it fully.
type FogResult struct {
	FogGeoJSON     string `json:"fog_geojson"`
	VisibleSources int    `json:"visible_sources"`
}
