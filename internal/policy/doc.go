// Package policy provides boundary policies for edit transactions.
//
// A boundary policy sees each narrowed edit together with a little of the
// surrounding text and may ask the transaction to absorb unchanged
// neighbouring bytes into the edit. Absorbed bytes are copied into the
// replacement, so a policy changes where fragment boundaries fall but
// never the resulting text.
//
// Three policies are provided:
//
//   - Markup widens an edit so a tag start is not split from its opener.
//   - Lua runs a user script in a sandboxed gopher-lua state.
//   - Chain combines several policies, taking the widest answer.
package policy
