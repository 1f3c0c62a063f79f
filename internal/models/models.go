// Package models defines core data structures for go-preprint
package models

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Article stages. Published is the terminal stage relevant for public visibility.
const (
	StageUnsubmitted = "unsubmitted"
	StageUnassigned  = "unassigned"
	StageReview      = "review"
	StageAccepted    = "accepted"
	StagePublished   = "published"
	StageRejected    = "rejected"
)

// Galley types
const (
	GalleyTypePDF  = "pdf"
	GalleyTypeHTML = "html"
	GalleyTypeXML  = "xml"
)

// Access types recorded by the metrics collaborator
const (
	AccessView     = "view"
	AccessDownload = "download"
)

// Account represents a person: a registered user or an added author
type Account struct {
	ID               int64      `json:"id" db:"id"`
	Username         string     `json:"username" db:"username"`
	Email            string     `json:"email" db:"email"`
	PasswordHash     string     `json:"-" db:"password_hash"`
	FirstName        string     `json:"first_name" db:"first_name"`
	MiddleName       string     `json:"middle_name" db:"middle_name"`
	LastName         string     `json:"last_name" db:"last_name"`
	Institution      string     `json:"institution" db:"institution"`
	Department       string     `json:"department" db:"department"`
	ORCID            string     `json:"orcid" db:"orcid"`
	IsActive         bool       `json:"is_active" db:"is_active"`
	SessionID        string     `json:"-" db:"session_id"`                          // Current active session (64 chars)
	LastLoginIP      string     `json:"-" db:"last_login_ip"`                       // IP of last login (for logging only)
	SessionExpiresAt *time.Time `json:"-" db:"session_expires_at"`                  // Session expiration (sliding)
	LoginAttempts    int        `json:"login_attempts" db:"login_attempts"`         // Failed login attempts counter
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// FullName joins first, middle and last name, skipping empty parts
func (a *Account) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{a.FirstName, a.MiddleName, a.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return a.Username
	}
	return cases.Title(language.Und, cases.NoLower).String(strings.Join(parts, " "))
}

// Article is a submission; it is a preprint when IsPreprint is set
type Article struct {
	ID                     int64      `json:"id" db:"id"`
	Title                  string     `json:"title" db:"title"`
	Subtitle               string     `json:"subtitle" db:"subtitle"`
	Abstract               string     `json:"abstract" db:"abstract"`
	Stage                  string     `json:"stage" db:"stage"`
	DatePublished          *time.Time `json:"date_published" db:"date_published"`
	OwnerID                *int64     `json:"owner_id" db:"owner_id"`
	CorrespondenceAuthorID *int64     `json:"correspondence_author_id" db:"correspondence_author_id"`
	CurrentStep            int        `json:"current_step" db:"current_step"`
	IsPreprint             bool       `json:"is_preprint" db:"is_preprint"`
	DateSubmitted          time.Time  `json:"date_submitted" db:"date_submitted"`
	UpdatedAt              time.Time  `json:"updated_at" db:"updated_at"`

	// Loaded on demand
	Authors  []*Account `json:"authors,omitempty" db:"-"`
	Keywords []string   `json:"keywords,omitempty" db:"-"`
}

// IsPublished reports whether the article is publicly visible at the given time
func (a *Article) IsPublished(now time.Time) bool {
	return a.Stage == StagePublished && a.DatePublished != nil && !a.DatePublished.After(now)
}

// IsOwnedBy reports whether accountID owns the article
func (a *Article) IsOwnedBy(accountID int64) bool {
	return a.OwnerID != nil && *a.OwnerID == accountID
}

// AuthorNames returns display names in author order
func (a *Article) AuthorNames() []string {
	names := make([]string, 0, len(a.Authors))
	for _, au := range a.Authors {
		names = append(names, au.FullName())
	}
	return names
}

// KeywordString joins keywords for form display
func (a *Article) KeywordString() string {
	return strings.Join(a.Keywords, ", ")
}

// Galley is a rendered artifact of an article, e.g. a PDF
type Galley struct {
	ID        int64     `json:"id" db:"id"`
	ArticleID int64     `json:"article_id" db:"article_id"`
	Type      string    `json:"type" db:"type"`
	Label     string    `json:"label" db:"label"`
	FileURL   string    `json:"file_url" db:"file_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ArticleAuthorOrder binds an author's display position within an article
type ArticleAuthorOrder struct {
	ID        int64 `json:"id" db:"id"`
	ArticleID int64 `json:"article_id" db:"article_id"`
	AccountID int64 `json:"account_id" db:"account_id"`
	Order     int   `json:"order" db:"author_order"`
}

// ArticleAccess is one recorded access event
type ArticleAccess struct {
	ID         int64     `json:"id" db:"id"`
	ArticleID  int64     `json:"article_id" db:"article_id"`
	Type       string    `json:"type" db:"type"`
	IP         string    `json:"ip" db:"ip"`
	UserAgent  string    `json:"user_agent" db:"user_agent"`
	AccessedAt time.Time `json:"accessed_at" db:"accessed_at"`
}
