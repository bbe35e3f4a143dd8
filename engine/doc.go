// Package engine provides helpers for working with the modernc.org/sqlite
// driver in this module: opening connections and registering the vec_l2
// scalar function that every similarity query in the store relies on.
package engine
