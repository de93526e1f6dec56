// Package inflect converts between the naming conventions used on the
// VivialConnect wire and in Go code, and between request/response bodies and
// generic key-value structures.
//
// Resource paths are derived from type names: a Go type name is underscored
// into the singular root key ("PhoneNumber" -> "phone_number") and the
// singular is pluralized into the collection segment ("phone_numbers").
// Pluralization follows the Rails inflector rules, including common irregular
// and uncountable words.
//
// All functions are pure and safe for concurrent use.
package inflect
