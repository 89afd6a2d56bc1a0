// Package github provides an HTTP client for the GitHub REST API.
//
// # Overview
//
// The client fetches the three resources the proxy aggregates:
//
//   - a user's owned repositories ([Client.ListUserRepos])
//   - a repository's commit history ([Client.ListCommits])
//   - raw repository files ([Client.FetchContent])
//
// List resources are paginated with [Client.Paginate], which fetches pages
// sequentially and stops at the first short page or at a page bound
// ([RepoPageBound], [CommitPageBound]).
//
// # Usage
//
//	client := github.NewClient(os.Getenv("GITHUB_TOKEN"))
//	repos, err := client.ListUserRepos(ctx, "octocat", github.Bounds{
//	    PerPage:  github.DefaultPerPage,
//	    MaxPages: github.RepoPageBound,
//	})
//
// # Authentication
//
// A personal access token is optional. Without one GitHub allows 60
// requests per hour; with one, 5000. A 403 or 429 response is reported as
// a RATE_LIMITED error and never retried.
//
// # Conditional Requests
//
// Commit listings and file fetches accept an ETag. When GitHub answers 304
// Not Modified the result has NotModified set and carries no payload, so the
// caller can keep its stored copy.
package github
