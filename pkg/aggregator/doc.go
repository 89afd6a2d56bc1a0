// Package aggregator turns GitHub data into the summaries served by the proxy.
//
// # Overview
//
// Each operation is a pipeline: validate the query, derive a cache key,
// consult the [cache.Store], and on a miss fetch from GitHub, filter, sort,
// and shape the records into summary types. Repository listings additionally
// resolve each project's live site through a prober.
//
//   - [Aggregator.ListRepositories]: a user's owned repositories
//   - [Aggregator.ListCommits]: a repository's commits since a day
//   - [Aggregator.FetchDocument]: a progress or case-study markdown file
//   - [Aggregator.Activity]: commits grouped by day with progress blurbs
//
// # Caching
//
// Repository listings are recomputed when stale. Commit listings and
// documents are revalidated with the ETag of the previous fetch, so an
// unchanged upstream resource costs one conditional request and is reported
// as [cache.StatusRevalidated].
//
// # Documents
//
// A document lookup tries a fixed list of candidate paths and returns the
// first that exists. A repository without the document yields an empty
// result, not an error:
//
//	res, status, err := agg.FetchDocument(ctx, aggregator.DocumentQuery{
//	    Kind:  aggregator.DocumentProgress,
//	    Owner: "octocat",
//	    Repo:  "hello-world",
//	})
//	if err == nil && !res.Found() {
//	    // no progress notes
//	}
package aggregator
