// Package session loads the saved publishing session used by upload attempts.
//
// A Handle is a value owned by a single upload attempt; the coordinator loads
// it, verifies it, and hands it to the publisher adapter. FileLoader reads the
// cookie jar written by the external login helper. How that jar is obtained or
// refreshed is outside this package.
package session
