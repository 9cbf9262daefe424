// Package gcal implements the external calendar provider adapter against the
// Google Calendar API. Each sync operation builds a per-user authenticated
// client from the OAuth token stored on the user's calendar connection.
package gcal
