// Package testutil contains fakes shared by package tests: scripted models
// and a recording trace sink. Not intended for production usage.
package testutil
