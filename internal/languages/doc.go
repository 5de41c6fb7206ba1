// Package languages maintains the registry of canonical language names, their
// aliases, and their syntax families. Filter validation resolves user-supplied
// names through this registry and suggests close matches for unknown ones.
package languages
