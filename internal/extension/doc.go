// Package extension materialises one browser extension per account from
// the family template: the template tree is copied, account values are
// substituted into the four scripts, the compiled scenario is embedded as
// traitement.json and the result is swapped into place atomically.
package extension
