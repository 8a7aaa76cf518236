// Package formats provides decoders for Final Fantasy Tactics map resources.
//
// A map is described by a GNS directory listing typed resources by sector.
// The primary mesh resource carries geometry, the palette table and the
// scene lighting; the texture resource carries a 4-bit indexed image.
package formats
