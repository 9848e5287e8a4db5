package types

import (
	"sort"
	"time"
)

// Section index bounds. Sections 0 through 5 carry content that must be
// acknowledged; section 6 is the terminal completion section and requires
// no acknowledgment.
const (
	FirstSection = 0
	LastSection  = 6
)

// ValidSection reports whether id falls within the fixed section range.
func ValidSection(id int) bool {
	return id >= FirstSection && id <= LastSection
}

// SectionRecord tracks a single user's acknowledgment of one content
// section. Sections a user has never touched have no record.
type SectionRecord struct {
	// ID is the section index, 0 through 6.
	ID int `json:"id" db:"id"`

	// Acknowledged reports whether the user has confirmed reading
	// the section.
	Acknowledged bool `json:"acknowledged" db:"acknowledged"`

	// CompletedAt is the time of the most recent acknowledgment write
	// for this section, absent if the section was never written.
	CompletedAt *time.Time `json:"completedAt,omitempty" db:"completed_at"`
}

// ProgressRecord is the per-user onboarding state. CurrentSection and
// CompletedSections are derived from the section set on every write, never
// incremented, so repeated or out-of-order acknowledgments converge to the
// same record.
type ProgressRecord struct {
	// UserID references the owning user. At most one record exists
	// per user.
	UserID int `json:"userId" db:"user_id"`

	// Sections holds one record per touched section, ordered by id.
	Sections []SectionRecord `json:"sections" db:"sections"`

	// CurrentSection is min(CompletedSections, 6).
	CurrentSection int `json:"currentSection" db:"current_section"`

	// CompletedSections counts sections with Acknowledged set.
	CompletedSections int `json:"completedSections" db:"completed_sections"`

	// LastUpdated is the time of the most recent write to this record.
	LastUpdated time.Time `json:"lastUpdated" db:"last_updated"`
}

// NewProgressRecord returns the default record a user starts from.
func NewProgressRecord(userID int, now time.Time) ProgressRecord {
	return ProgressRecord{
		UserID:      userID,
		Sections:    []SectionRecord{},
		LastUpdated: now,
	}
}

// SetSection upserts the section record for the given id, overwriting the
// acknowledged flag and stamping CompletedAt.
func (p *ProgressRecord) SetSection(id int, acknowledged bool, now time.Time) {
	at := now
	for i := range p.Sections {
		if p.Sections[i].ID == id {
			p.Sections[i].Acknowledged = acknowledged
			p.Sections[i].CompletedAt = &at
			return
		}
	}
	p.Sections = append(p.Sections, SectionRecord{
		ID:           id,
		Acknowledged: acknowledged,
		CompletedAt:  &at,
	})
	sort.Slice(p.Sections, func(i, j int) bool {
		return p.Sections[i].ID < p.Sections[j].ID
	})
}

// Recompute derives CompletedSections and CurrentSection from the section
// set and stamps LastUpdated.
func (p *ProgressRecord) Recompute(now time.Time) {
	count := 0
	for _, s := range p.Sections {
		if s.Acknowledged {
			count++
		}
	}
	p.CompletedSections = count
	p.CurrentSection = count
	if p.CurrentSection > LastSection {
		p.CurrentSection = LastSection
	}
	p.LastUpdated = now
}

// EnrichedProgress is a progress record joined with the owning user's
// public metadata for the admin report.
type EnrichedProgress struct {
	ProgressRecord

	// UserName is the owning user's name, or "Unknown" when the user
	// record is missing.
	UserName string `json:"userName"`

	// UserEmail is the owning user's email, or "Unknown" when the user
	// record is missing.
	UserEmail string `json:"userEmail"`
}
