// Package password provides argon2id hashing with PHC string encoding.
// Stored hashes are self-describing: Verify reads cost parameters from the
// hash itself, which lets the engine upgrade weak hashes on login.
package password
