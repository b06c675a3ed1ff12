// Package entities defines the GORM models of the gazetteer schema.
//
// A Place owns its Names (cascade delete). Language, Period, PlaceType,
// Informant and Author are shared reference data. Image, Text and Document
// evidence reference a Place through a nullable place_id that is cleared
// when the Place is deleted.
//
// Geometries are stored as GeoJSON text together with an axis aligned
// envelope (min_lon, min_lat, max_lon, max_lat) that the spatial filter uses
// as an indexable prefilter.
package entities
