// Package errors provides coded, structured error values for way.
//
// Every failure the engine can log or return has a code (e.g. "E201") that
// maps to a short message, a category, and a longer explanation. Hydration
// never aborts on these errors; they are logged through slog and the offending
// directive or node is skipped. Only registration and configuration errors
// are returned to callers.
//
// # Usage
//
//	err := errors.New("E213").
//	    WithDetail(`x-model="user.name" resolved to a string`).
//	    WithSuggestion("Bind x-model to a signal, e.g. name: signal('')")
//
//	fmt.Println(err.Format())
package errors
