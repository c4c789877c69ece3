/*
Package session serialises access to user rows.

Every turn of a user runs under that user's lock: a ref-counted in-process
mutex, plus an optional distributed lock when several replicas share the
same store.
*/
package session
