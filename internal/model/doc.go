// Package model defines domain entities and data structures for the Tempo API.
//
// The model package contains struct definitions for domain objects,
// request/response types, and error definitions. Models are used across all
// layers of the application.
//
// # Domain Entities
//
// Core domain entities include:
//
//   - Event: a time-bound booking with a creator and invited participants
//   - Participant: an invitee on an event, identified by email
//   - User: application user referenced by events as creator
//
// # JSON Serialization
//
// All models use json struct tags for API serialization:
//
//	type Event struct {
//	    ID    string `json:"id"`
//	    Title string `json:"title"`
//	}
//
// # Error Types
//
// RFC 9457 Problem Details errors are defined in errors.go:
//
//	type ProblemDetails struct {
//	    Type   string `json:"type"`
//	    Title  string `json:"title"`
//	    Status int    `json:"status"`
//	    Detail string `json:"detail"`
//	}
package model
