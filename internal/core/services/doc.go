// Package services implements the document lifecycle core: the document
// store, upload and deletion coordinators, the polling scheduler and the
// view controller that exposes them to the driving adapters.
//
// Services are pure Go and talk to infrastructure only through the
// driven ports.
package services
