// Package match scores how likely a canonical field name and a JSON path
// denote the same concept.
//
// Score layers several independent signals and keeps the strongest one:
//   - exact and parent+leaf combined name equality
//   - synonym, abbreviation and stem expansion of word tokens
//   - substring containment
//   - Levenshtein similarity (typo tolerance)
//   - loose token overlap, used only when nothing else is convincing
//
// All lookup tables are built once at package init and never mutated, so
// every function in this package is safe for concurrent use.
package match
