package api

import (
	"fmt"
	"strings"
)

const gqlPostFields = `
          name
          tagline
          description
          createdAt
          votesCount
          url
          topics(first: 10) {
            edges { node { name } }
          }`

const gqlTopicPostsTmpl = `query TopicPosts($slug: String!, $first: Int!) {
  topic(slug: $slug) {
    posts(first: $first, order: %s) {
      edges {
        node {` + gqlPostFields + `
        }
      }
    }
  }
}`

const gqlGlobalPostsTmpl = `query Posts($first: Int!) {
  posts(first: $first, order: %s) {
    edges {
      node {` + gqlPostFields + `
      }
    }
  }
}`

// gqlPayload is the exact wire shape sent to the GraphQL endpoint. It carries
// only wire fields; local bookkeeping lives on queryContext.
type gqlPayload struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// queryContext pairs a clean network payload with the derived local filter
// term.
type queryContext struct {
	payload     gqlPayload
	localFilter string
}

// buildQuery assembles the GraphQL payload for either the topic-scoped or
// the global posts shape. The search term is normalized once here, so the
// local filter is identical regardless of which response shape ends up
// serving the request.
func buildQuery(first int, order, topicSlug, searchTerm string) queryContext {
	orderEnum := strings.ToUpper(strings.TrimSpace(order))
	if orderEnum != "RANKING" && orderEnum != "NEWEST" {
		orderEnum = "RANKING"
	}
	var payload gqlPayload
	if topicSlug != "" {
		payload = gqlPayload{
			Query:     fmt.Sprintf(gqlTopicPostsTmpl, orderEnum),
			Variables: map[string]any{"slug": topicSlug, "first": first},
		}
	} else {
		payload = gqlPayload{
			Query:     fmt.Sprintf(gqlGlobalPostsTmpl, orderEnum),
			Variables: map[string]any{"first": first},
		}
	}
	return queryContext{
		payload:     payload,
		localFilter: strings.ToLower(strings.TrimSpace(searchTerm)),
	}
}
