// Package handler provides HTTP request handlers for the Tempo API.
//
// Each handler struct encapsulates the service dependencies needed to
// serve requests for one feature area. Handlers decode request bodies,
// delegate to the service layer, and translate service errors into
// RFC 9457 Problem Details responses via MapServiceError.
//
// # Response Format
//
// Handlers use standardized response functions:
//
//   - WriteData: Single resource with optional HATEOAS links
//   - WriteCollection: List of resources
//   - WriteJSON: Raw JSON response
//   - WriteError: RFC 9457 Problem Details error response
//
// # Authentication
//
// Event endpoints require authentication via JWT tokens. The auth
// middleware extracts the caller and makes it available through
// middleware.GetUserID and middleware.GetUserEmail.
package handler
