// Copyright © 2018 One Concern

// Package storage provides interface to handle backend storage objects.
//
// The storage server keeps both of its buckets on a local file system through
// the localfs implementation. Objects are immutable once visible: writes are
// staged then renamed into place, optionally after their content has been verified.
package storage
