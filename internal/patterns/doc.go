// Package patterns compiles the sensitive-text rules that decide what gets
// masked.
//
// Two kinds of rule exist:
//
//   - Literal headers such as "Authorization" or "X-API-Key". They match as a
//     whole token, case-insensitively, and the match extends over the value
//     that follows the header on the same line.
//   - Regular expressions supplied by the user. They are case-insensitive unless
//     the rule says otherwise.
//
// A token boundary is any character outside [A-Za-z0-9_-]. Hyphens count as
// part of a token so "Host" does not fire inside "X-Host" or "myHostname".
//
// A compiled Registry is immutable and safe for concurrent use.
package patterns
