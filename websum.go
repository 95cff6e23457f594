// Package websum provides a polite, resumable crawl orchestrator for
// building documentation knowledge bases. It decides what to fetch next,
// at what rate, with what retry policy, and when to stop; the actual
// fetching and content processing are pluggable collaborators.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, rod/, goquery/).
package websum
