// Package domain models USGS earthquake summary feed data and the pure
// functions that narrow, order, and summarize it.
//
// # Data Source
//
// Events originate from the USGS real-time GeoJSON summary feeds, available at
// https://earthquake.usgs.gov/earthquakes/feed/v1.0/geojson.php. One feed exists
// per lookback window (all_hour, all_day, all_week, all_month). The adapter in
// internal/adapter/usgs decodes the FeatureCollection into [Event] values; this
// package never touches the network.
//
// # USGS Data Conventions
//
// Coordinates:
//
//	geometry.coordinates is [longitude, latitude, depth_km].
//	Longitudes are usually in [-180, 180] but are not guaranteed to be normalized.
//
// Magnitude:
//
//	properties.mag is null until a network has computed one. A null magnitude
//	is kept as a nil pointer and is never treated as zero: it fails every
//	minimum-magnitude test, including a threshold of 0.
//
// Time:
//
//	properties.time is the origin time in epoch milliseconds. properties.updated
//	is the last revision time. Presentation order is origin time, newest first.
//
// Products:
//
//	properties.types is a comma-separated product list with leading and trailing
//	commas, e.g. ",origin,phase-data,moment-tensor,". See [Event.HasProduct].
//
// Intensity:
//
//	properties.mmi is the Modified Mercalli Intensity estimate (1-12+), null when
//	no ShakeMap exists. See [ClassifyIntensity].
//
// # Severity Classification
//
// Magnitude bands follow the conventional USGS descriptive classes:
//
//	<2.5 minor | <4.5 light | <6.0 moderate | <7.0 strong | <8.0 major | >=8.0 great
//
// # Identity
//
// A refresh yields an entirely new collection. Event IDs are stable across
// refreshes for the same physical event and are the only way to correlate two
// collections (selection survives a refresh, new events trigger alerts).
package domain
