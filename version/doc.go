// Package version parses, formats and orders four-component dotted versions
// (major.minor.patch.build) such as the ones reported by database servers.
//
// Parsing is tolerant: leading whitespace is skipped and anything after the
// leading run of digits and dots (for example "-1-gabcdef") is ignored.
package version
