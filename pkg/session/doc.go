/*
Package session implements the session memory: safe concurrent access to a
session's head, accumulated context, and step log.

It serializes turn processing per session with reference-counted local
locks, optionally paired with a distributed locker so multiple replicas
never process the same session at once, and layers conversation-history
helpers on top of the persistence store.
*/
package session
