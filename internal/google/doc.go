// Package google manages OAuth2 tokens for Google APIs.
//
// Tokens are cached per account under the user cache directory
// (google-<account>.token). The TokenProvider interface lets callers swap
// the file cache for another token source in tests.
package google
