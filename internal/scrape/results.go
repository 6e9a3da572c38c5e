package scrape

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Profile is one academic profile found by the primary stage.
type Profile struct {
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Institution string `json:"institution,omitempty"`
	Field       string `json:"field,omitempty"`
	Speciality  string `json:"speciality,omitempty"`
	Email       string `json:"email,omitempty"`
	ProfileURL  string `json:"profile_url,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// PrimaryResult is the schema of the primary stage's result file.
type PrimaryResult struct {
	SearchedName  string    `json:"searched_name"`
	Status        string    `json:"status,omitempty"`
	TotalProfiles int       `json:"total_profiles"`
	Profiles      []Profile `json:"profiles"`
}

// Collaborator is one entry in the secondary stage's result file, which is a
// bare JSON array.
type Collaborator struct {
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Institution string `json:"institution,omitempty"`
	ProfileURL  string `json:"profile_url,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// LoadPrimaryResult reads and parses the primary result file.
func LoadPrimaryResult(path string) (*PrimaryResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var result PrimaryResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return &result, nil
}

// LoadCollaborators reads and parses the secondary result file.
func LoadCollaborators(path string) ([]Collaborator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var collaborators []Collaborator
	if err := json.Unmarshal(data, &collaborators); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return collaborators, nil
}
