// Package testsupport holds fixtures shared by package tests: temp-dir
// configs, media files, workbooks, and an opened upload store.
package testsupport
