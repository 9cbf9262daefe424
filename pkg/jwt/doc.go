// Package jwt implements RS256 JSON Web Token signing and validation.
//
// The API validates tokens minted by the identity service; both sides share
// the key pair out of band. Only the public key is required for
// validation-only deployments.
package jwt
