package session

import (
	"os"
	"path/filepath"
)

// Well-known artifact names inside a session directory. The worker contract
// requires each result file to be fully written before its marker appears.
const (
	PrimaryResultFile   = "main_profile.json"
	PrimaryDoneMarker   = "main_done.txt"
	SecondaryResultFile = "collaborators.json"
	SecondaryDoneMarker = "collaborators_done.txt"
)

// ArtifactNames lists the four files the watcher cares about.
func ArtifactNames() []string {
	return []string{PrimaryResultFile, PrimaryDoneMarker, SecondaryResultFile, SecondaryDoneMarker}
}

// Artifacts records which artifacts currently exist in a session directory.
type Artifacts struct {
	PrimaryResult   bool `json:"primary_result"`
	PrimaryDone     bool `json:"primary_done"`
	SecondaryResult bool `json:"secondary_result"`
	SecondaryDone   bool `json:"secondary_done"`
}

// DetectArtifacts stats the four well-known files under dir.
func DetectArtifacts(dir string) Artifacts {
	exists := func(name string) bool {
		info, err := os.Stat(filepath.Join(dir, name))
		return err == nil && !info.IsDir()
	}
	return Artifacts{
		PrimaryResult:   exists(PrimaryResultFile),
		PrimaryDone:     exists(PrimaryDoneMarker),
		SecondaryResult: exists(SecondaryResultFile),
		SecondaryDone:   exists(SecondaryDoneMarker),
	}
}
