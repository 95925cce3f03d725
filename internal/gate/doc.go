// Package gate asks the operator to approve pending links before upload.
package gate
