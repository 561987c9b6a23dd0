package candidate

import (
	"fmt"
	"time"
)

const (
	DocumentIDField          = "ID"
	DocumentNameField        = "Name"
	DocumentFingerprintField = "Fingerprint"
)

// Set is an ordered collection of candidate documents. Order is the
// intake order and drives work assignment downstream.
type Set struct {
	Items []*Document
}

// Document is one submitted candidate file. Identity and content are
// fixed at intake.
type Document struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name,omitempty"`
	Path        string    `json:"path,omitempty"`
	Size        int64     `json:"size,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	LoadedAt    time.Time `json:"loaded_at,omitempty"`

	Data []byte `json:"-"`
}

func (d *Document) GetStringField(name string) string {
	switch name {
	case DocumentIDField:
		return d.ID
	case DocumentNameField:
		return d.Name
	case DocumentFingerprintField:
		return d.Fingerprint

	default:
		return ""
	}
}

func (s *Set) Len() int {
	return len(s.Items)
}

func (s *Set) FindByID(id string) *Document {
	for _, doc := range s.Items {
		if doc.ID == id {
			return doc
		}
	}
	return nil
}

// Names returns document names in set order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.Items))
	for _, doc := range s.Items {
		names = append(names, doc.Name)
	}
	return names
}

// Exclude removes documents whose field matches one of the targets.
// Returns the ids of removed documents.
func (s *Set) Exclude(name string, targets []string) []string {
	var excluded []string
	for _, target := range targets {
		for idx, doc := range s.Items {
			if doc.GetStringField(name) == target {
				s.RemoveByIndex(idx)
				excluded = append(excluded, doc.ID)
				break
			}
		}
	}
	return excluded
}

// RemoveByIndex removes a document from the set by index. Do not preserve order.
func (s *Set) RemoveByIndex(idx int) {
	s.Items[idx] = s.Items[len(s.Items)-1]
	s.Items = s.Items[:len(s.Items)-1]
}

func (d *Document) String() string {
	return fmt.Sprintf("%s (%s, %d bytes)", d.Name, d.ID, d.Size)
}
