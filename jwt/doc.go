// Package jwt wraps token creation and parsing for the two token classes.
// Access and refresh tokens are signed with distinct HMAC secrets so that
// compromise of one class's secret cannot forge the other.
package jwt
