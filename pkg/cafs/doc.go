// Package cafs provides the content addressing scheme shared by the client and the storage server.
//
// All content is addressed by its SHA-256 digest. A Key is the raw digest; its
// text form is 64 lowercase hexadecimal characters, which is the only shape
// accepted in resource URLs and storage paths.
//
// Two kinds of keys are derived:
//   - content keys, the digest of a blob (used by the CAS bucket)
//   - identifier keys, the digest of a cache id string (used by the AC bucket)
package cafs
