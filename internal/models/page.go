// Package models defines the domain types for Ansuz.
package models

import (
	"strings"
	"time"
)

// PARA categories. Every page belongs to exactly one.
const (
	CategoryInbox     = "inbox"
	CategoryProjects  = "projects"
	CategoryAreas     = "areas"
	CategoryResources = "resources"
	CategoryArchives  = "archives"
)

// Categories lists all valid PARA categories in display order.
var Categories = []string{
	CategoryInbox,
	CategoryProjects,
	CategoryAreas,
	CategoryResources,
	CategoryArchives,
}

// ValidCategory reports whether c is one of the five PARA categories.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Page is a titled document composed of ordered blocks.
type Page struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Deadline  string    `json:"deadline,omitempty"` // ISO date; meaningful only for projects
	Tags      string    `json:"tags"`               // canonical comma-joined form
	IsDeleted bool      `json:"is_deleted"`
	BlocksSeq int64     `json:"-"` // last accepted full-replace sequence number
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PageRef is a lightweight {id, title} reference used for wiki-link
// resolution snapshots and backlink listings.
type PageRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Metadata is the fast-channel autosave tuple.
type Metadata struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Deadline string `json:"deadline"`
	Tags     string `json:"tags"`
}

// SplitTags splits a canonical comma-joined tag string into individual
// tags, trimming whitespace and dropping empties.
func SplitTags(tags string) []string {
	if tags == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(tags, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// JoinTags produces the canonical comma-joined form: trimmed, duplicates
// removed, original order preserved.
func JoinTags(tags []string) string {
	seen := make(map[string]struct{}, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return strings.Join(out, ",")
}

// CanonicalTags normalises a raw comma-joined tag string.
func CanonicalTags(tags string) string {
	return JoinTags(strings.Split(tags, ","))
}
