package pipeline

import (
	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitebuilder/internal/collections"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/metadata"
)

// Pass is the state of one pipeline run for one locale. Stages hand data to
// each other through it.
type Pass struct {
	ID          string
	Locale      string
	Source      string
	Destination string
	Resolved    *metadata.Document

	Files       *content.Files
	Collections *collections.Set
	Report      *Report
}

// NewPass prepares a pass reading from source and writing to destination.
func NewPass(locale, source, destination string, resolved *metadata.Document) *Pass {
	id := uuid.NewString()
	return &Pass{
		ID:          id,
		Locale:      locale,
		Source:      source,
		Destination: destination,
		Resolved:    resolved,
		Files:       content.NewFiles(),
		Report:      newReport(id, locale),
	}
}
