// Package input is the trust boundary for every untrusted string entering
// the storefront. Nothing in here performs I/O: the package is a family of
// pure classification, sanitization, and escaping functions, and it is the
// leaf of the module's dependency graph.
//
// Three distinct jobs live here and must not be confused:
//
//   - Sanitizers ([SanitizeInput], [SanitizeObject]) transform a value into
//     a safe-to-store form. They never reject; they strip.
//   - Validators ([ValidatePassword], [ValidateEmail], ...) classify a value
//     and return a typed [Result]. Expected bad input is a Result, never an
//     error return and never a panic.
//   - Escapers ([EscapeHTML], [EscapeJavaScript], ...) encode a value for
//     exactly one rendering sink. Using the escaper of one sink for another
//     is the vulnerability class this separation exists to prevent.
//
// Callers in the surrounding application go through these functions
// exclusively and never reimplement escaping locally.
package input
