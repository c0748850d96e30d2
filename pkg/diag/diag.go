// Package diag contains building blocks for formatting and processing
// diagnostic information: call stacks, message types and the message sink.
package diag
