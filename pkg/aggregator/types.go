package aggregator

import (
	"strings"
	"time"
)

// RepositorySummary is the public shape of one repository.
type RepositorySummary struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	FullName    string       `json:"full_name"`
	HTMLURL     string       `json:"html_url"`
	Description *string      `json:"description"`
	Language    *string      `json:"language"`
	Topics      []string     `json:"topics"`
	Stars       int          `json:"stargazers_count"`
	Forks       int          `json:"forks_count"`
	Archived    bool         `json:"archived"`
	Fork        bool         `json:"fork"`
	UpdatedAt   *time.Time   `json:"updated_at"`
	PushedAt    *time.Time   `json:"pushed_at"`
	Owner       Owner        `json:"owner"`
	Homepage    *string      `json:"homepage"`
	Branch      string       `json:"default_branch"`
	License     *LicenseInfo `json:"license"`
	OpenIssues  int          `json:"open_issues_count"`

	// LiveURL is the first candidate site that answered, nil when none did.
	LiveURL *string `json:"live_url"`
}

// Owner is a repository owner.
type Owner struct {
	Login string `json:"login"`
}

// LicenseInfo is a repository's detected license.
type LicenseInfo struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	SPDXID string `json:"spdx_id"`
}

// CommitSummary is the public shape of one commit.
type CommitSummary struct {
	SHA     string       `json:"sha"`
	HTMLURL string       `json:"html_url"`
	Message string       `json:"message"`
	Author  CommitAuthor `json:"author"`
}

// CommitAuthor names who wrote a commit and when. Date is the upstream
// RFC 3339 timestamp, or "" when unknown.
type CommitAuthor struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

// Title is the first line of the commit message.
func (c CommitSummary) Title() string {
	title, _, _ := strings.Cut(c.Message, "\n")
	return strings.TrimRight(title, "\r")
}

// ShortSHA is the 7-character abbreviated SHA.
func (c CommitSummary) ShortSHA() string {
	if len(c.SHA) > 7 {
		return c.SHA[:7]
	}
	return c.SHA
}

// RepoQuery selects a repository listing.
type RepoQuery struct {
	Username        string
	IncludeForks    bool
	IncludeArchived bool
	Sort            string
}

// CommitQuery selects a commit listing. A zero Since lists the whole bounded
// history.
type CommitQuery struct {
	Owner string
	Repo  string
	Since time.Time
}

// DocumentQuery selects a document lookup.
type DocumentQuery struct {
	Kind  DocumentKind
	Owner string
	Repo  string
}
