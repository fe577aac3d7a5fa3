// Package keys holds the secret key material of the lock key hierarchy.
//
// Every key is exactly 20 bytes, the width of a SHA-1 digest. Four roles
// exist and each authorizes a fixed set of operations:
//
//	master -> rotates master and config keys
//	config -> rotates sync and access keys
//	sync   -> signs time synchronization
//	access -> signs check-in, check-out and bidirectional access
//
// Keys are created once per role at provisioning time and only replaced by
// a rotation payload signed with the superior key.
package keys
