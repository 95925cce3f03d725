// Package preflight provides readiness checks for the filesystem paths and
// remote services osm-autolink depends on.
//
// The CLI "osm-autolink check" command runs RunAll and renders each Result.
// Checks are gated by configuration: Nominatim is only probed when address
// lookups are enabled. The link finder check only inspects credentials so
// it never spends provider quota.
package preflight
