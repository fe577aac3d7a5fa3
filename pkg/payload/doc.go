// Package payload assembles and opens lock payloads.
//
// Assembly composes a header, a body and, for signed operations, an
// HMAC-SHA1 tag keyed by the authorizing role's key:
//
//	p, err := payload.CheckIn(userID, time.Now(), payload.Signer{
//	    Role: keys.RoleAccess,
//	    Key:  accessKey,
//	})
//
// The authorizing role is an explicit argument and must match the key
// hierarchy. A rotation payload carries the new key in its body and is
// always signed by the superior key, never by the key being installed.
//
// Open is the reader side: it splits a scanned payload using the
// header's message type and checks the tag against a key source.
package payload
