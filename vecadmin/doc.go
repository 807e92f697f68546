// Package vecadmin rebuilds and persists brute-force indexes over the records
// table, either from Go or through the vec_admin SQLite virtual table.
package vecadmin
