// Package cli provides the interactive pinmail terminal client.
//
// The client drives the message controller in-process against the configured
// database and session backend. Redirects returned by the controller are
// followed the way a browser would follow them, and a redirect to the PIN
// prompt asks for the PIN without echo.
//
// Typical flow: login, inbox, read a message, reply with "send <hash>".
// "token" prints a bearer token for the same session so it can be used
// against the HTTP surface.
package cli
