// Package logs provides offset-based tailing of the daemon log file.
//
// The IPC layer uses it to serve `scout logs`: a first call with a negative
// offset returns the last lines of the file, and subsequent calls resume
// from the returned offset so followers never re-read history. A missing
// log file is not an error; it reads as empty at offset zero.
package logs
