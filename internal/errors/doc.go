// Package errors provides coded, actionable errors for the routeagent
// command and server.
//
// Library packages return plain sentinel errors. At the edges (CLI output,
// error frames sent to a browser, startup failures) Classify maps them onto
// registered codes:
//
//	E100-E109  history adapter and agent lifecycle
//	E110-E119  configuration and route tables
//	E120-E129  snapshot stores
//	E130-E139  wire protocol
//	E140-E149  command line
//
// Usage:
//
//	err := errors.New("E110").
//	    WithField("snapshot.backend").
//	    WithSuggestion(`use one of "memory", "redis" or "s3"`)
//
//	fmt.Fprint(os.Stderr, err.Format())
package errors
