// Package models defines the domain types for Anchor.
package models

import "strings"

// Type is the kind of filesystem location a reference points at.
type Type string

const (
	TypeFolder Type = "folder"
	TypeFile   Type = "file"
)

// Status is the lifecycle bucket a reference belongs to.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusIdea      Status = "idea"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// StatusOrder is the fixed display order of status groups.
var StatusOrder = []Status{
	StatusActive,
	StatusPaused,
	StatusIdea,
	StatusCompleted,
	StatusArchived,
}

// Label returns the human-readable section title for s.
func (s Status) Label() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusPaused:
		return "Paused"
	case StatusIdea:
		return "Idea"
	case StatusCompleted:
		return "Completed"
	case StatusArchived:
		return "Archived"
	}
	return string(s)
}

// Reference is a cataloged folder or file.
//
// CreatedAt and LastOpenedAt are RFC 3339 strings owned by the backend;
// the client never sets them.
type Reference struct {
	ID            string   `json:"id"`
	ReferenceName string   `json:"referenceName"`
	AbsolutePath  string   `json:"absolutePath"`
	Type          Type     `json:"type"`
	Status        Status   `json:"status"`
	Tags          []string `json:"tags"`
	Description   *string  `json:"description"`
	CreatedAt     string   `json:"createdAt"`
	LastOpenedAt  string   `json:"lastOpenedAt"`
	Pinned        bool     `json:"pinned"`
}

// Draft holds the client-editable fields of a reference.
type Draft struct {
	ReferenceName string   `json:"referenceName"`
	AbsolutePath  string   `json:"absolutePath"`
	Type          Type     `json:"type"`
	Status        Status   `json:"status"`
	Tags          []string `json:"tags"`
	Description   *string  `json:"description"`
	Pinned        bool     `json:"pinned"`
}

// Draft returns the editable part of r.
func (r Reference) Draft() Draft {
	return Draft{
		ReferenceName: r.ReferenceName,
		AbsolutePath:  r.AbsolutePath,
		Type:          r.Type,
		Status:        r.Status,
		Tags:          append([]string(nil), r.Tags...),
		Description:   r.Description,
		Pinned:        r.Pinned,
	}
}

// Clone returns a deep copy of r.
func (r Reference) Clone() Reference {
	out := r
	if r.Tags != nil {
		out.Tags = append([]string(nil), r.Tags...)
	}
	if r.Description != nil {
		d := *r.Description
		out.Description = &d
	}
	return out
}

// Normalize trims the text fields, applies the defaults for type and status
// and turns a blank description into nil.
func (d Draft) Normalize() Draft {
	d.ReferenceName = strings.TrimSpace(d.ReferenceName)
	d.AbsolutePath = strings.TrimSpace(d.AbsolutePath)
	if d.Type == "" {
		d.Type = TypeFolder
	}
	if d.Status == "" {
		d.Status = StatusActive
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	if d.Description != nil {
		desc := strings.TrimSpace(*d.Description)
		if desc == "" {
			d.Description = nil
		} else {
			d.Description = &desc
		}
	}
	return d
}

// NormalizeTags splits a comma-separated tag list. Entries are trimmed and
// empty ones dropped; order, case and duplicates are kept.
func NormalizeTags(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
