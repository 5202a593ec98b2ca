// Package model describes the base objects manipulated by cache-transporter.
//
// The object model is composed of:
//
//	Cache ids:
//	  An opaque, caller-supplied string naming one cache entry.
//
//	Metadata:
//	  A small record binding a cache id to the location its archive was built
//	  from (the working directory and the common ancestor of the archived paths)
//	  and to the SHA-256 digest of the archive.
//
//	Buckets:
//	  The storage server holds two flat namespaces. CAS is keyed by the digest of
//	  the stored content. AC is keyed by the digest of a cache id and holds metadata.
package model
