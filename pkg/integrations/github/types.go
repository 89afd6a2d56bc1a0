package github

import "time"

// Repository is the subset of a GitHub repository record the proxy uses.
type Repository struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	FullName    string     `json:"full_name"`
	Owner       Account    `json:"owner"`
	Description *string    `json:"description"`
	HTMLURL     string     `json:"html_url"`
	Homepage    *string    `json:"homepage"`
	Language    *string    `json:"language"`
	Topics      []string   `json:"topics"`
	Stars       int        `json:"stargazers_count"`
	Forks       int        `json:"forks_count"`
	OpenIssues  int        `json:"open_issues_count"`
	Fork        bool       `json:"fork"`
	Archived    bool       `json:"archived"`
	Branch      string     `json:"default_branch"`
	License     *License   `json:"license"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	PushedAt    *time.Time `json:"pushed_at"`
}

// License is the detected license of a repository.
type License struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	SPDXID string `json:"spdx_id"`
}

// Account identifies a GitHub user. The API sends null for commits whose
// author has no linked account.
type Account struct {
	Login string `json:"login"`
}

// Commit is one entry of a repository's commit history.
type Commit struct {
	SHA       string       `json:"sha"`
	HTMLURL   string       `json:"html_url"`
	Commit    CommitDetail `json:"commit"`
	Author    *Account     `json:"author"`
	Committer *Account     `json:"committer"`
}

// CommitDetail is the git-level part of a commit record.
type CommitDetail struct {
	Message   string    `json:"message"`
	Author    *GitActor `json:"author"`
	Committer *GitActor `json:"committer"`
}

// GitActor is a git author or committer signature.
type GitActor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Date  string `json:"date"`
}

// Content is a raw file fetched from a repository.
type Content struct {
	Path        string
	Body        string
	ETag        string
	NotModified bool
}

// RepoListOptions are the query parameters of a user's repository listing.
type RepoListOptions struct {
	Type      string `url:"type,omitempty"`
	Sort      string `url:"sort,omitempty"`
	Direction string `url:"direction,omitempty"`
}

// CommitListOptions are the query parameters of a commit listing.
type CommitListOptions struct {
	SHA   string     `url:"sha,omitempty"`
	Since *time.Time `url:"since,omitempty"`
}
