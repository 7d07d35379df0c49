package api

import "github.com/itsbohara/anchor/internal/models"

// Reference is the response type for a single reference (aliased from the domain layer).
type Reference = models.Reference

// ReferencePayload is the request body for add and update.
type ReferencePayload = models.Payload

// PathExistsResponse answers GET /path-exists.
type PathExistsResponse struct {
	Exists bool `json:"exists" validate:"required"`
}

// ActionRequest is the request body for POST /actions/{command}.
type ActionRequest struct {
	Path string `json:"path" example:"/Users/me/code/anchor" validate:"required"`
}
