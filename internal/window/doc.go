// Package window reduces an ordered event sequence to the slices a viewport
// needs: an index range for a scrolled list and a geographic subset for a map.
//
// The list windower is O(1) per observation and runs on every scroll. The
// spatial windower scans the whole collection, so map movement is coalesced
// through a Debouncer and recomputed once per settled viewport.
package window
