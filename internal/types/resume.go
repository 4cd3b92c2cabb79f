// Package types provides typed views of the resume document and the request payloads
// of the HTTP API.
package types

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/jonathan/resume-editor/internal/document"
)

// Personal is the personal section.
type Personal struct {
	FullName string  `json:"fullName"`
	Title    string  `json:"title"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Location string  `json:"location"`
	Website  string  `json:"website"`
	LinkedIn string  `json:"linkedIn"`
	Photo    *string `json:"photo"`
}

// Experience is one entry of the experience section.
type Experience struct {
	Company      string   `json:"company"`
	Position     string   `json:"position"`
	Location     string   `json:"location,omitempty"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
	Description  string   `json:"description,omitempty"`
	Achievements []string `json:"achievements"`
}

// Education is one entry of the education section.
type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Field       string `json:"field,omitempty"`
	Location    string `json:"location,omitempty"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	GPA         string `json:"gpa,omitempty"`
}

// Project is one entry of the projects section.
type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Role         string   `json:"role,omitempty"`
	URL          string   `json:"url,omitempty"`
	Technologies []string `json:"technologies"`
	Highlights   []string `json:"highlights"`
}

// Certification is one entry of the certifications section.
type Certification struct {
	Name         string `json:"name"`
	Issuer       string `json:"issuer"`
	Date         string `json:"date"`
	CredentialID string `json:"credentialId,omitempty"`
	URL          string `json:"url,omitempty"`
}

// Language is one entry of the languages section.
type Language struct {
	Name        string `json:"name"`
	Proficiency string `json:"proficiency"`
}

// Resume is the typed form of a document. Skills are plain strings.
type Resume struct {
	Personal       Personal        `json:"personal"`
	Summary        string          `json:"summary"`
	Experience     []Experience    `json:"experience"`
	Education      []Education     `json:"education"`
	Skills         []string        `json:"skills"`
	Projects       []Project       `json:"projects"`
	Certifications []Certification `json:"certifications"`
	Languages      []Language      `json:"languages"`
}

// Document converts r into a document tree. Nil sections become empty sequences.
func (r *Resume) Document() (document.Document, error) {
	doc, err := document.FromValue(r)
	if err != nil {
		return nil, err
	}
	for _, s := range document.Sections {
		if doc[s] == nil && s != document.SectionPersonal && s != document.SectionSummary {
			doc[s] = []any{}
		}
	}
	return doc, nil
}

// ResumeFromDocument reads doc into a Resume. Fields the struct does not know are
// dropped.
func ResumeFromDocument(doc document.Document) (*Resume, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	var r Resume
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to read resume: %w", err)
	}
	return &r, nil
}
