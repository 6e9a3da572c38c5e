// Package watchfs delivers filesystem change notifications for session
// directories.
//
// Two mechanisms satisfy the same Watcher interface: an inotify-backed
// watcher for local filesystems and a polling watcher for mounts where
// change notification is unreliable. Consumers debounce; this package only
// reports raw changes.
package watchfs
