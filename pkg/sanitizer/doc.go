// Package sanitizer normalizes free-form request input before validation and storage.
//
// Every function is idempotent: applying it twice gives the same result as once.
// Invalid input is cleaned rather than rejected; rejection is the validator's job.
package sanitizer
