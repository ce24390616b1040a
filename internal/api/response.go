package api

import (
	"strings"
	"time"

	"github.com/maltedev/ph-ai-tracker/internal/filter"
	"github.com/maltedev/ph-ai-tracker/internal/models"
)

// Typed view of the GraphQL response. Pointers make "shape absent"
// distinguishable from "shape present but empty"; nothing outside this file
// touches the raw response structure.
type gqlResponse struct {
	Data   *gqlData   `json:"data"`
	Errors []gqlError `json:"errors"`
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlData struct {
	Topic *gqlTopic `json:"topic"`
	Posts *gqlPosts `json:"posts"`
}

type gqlTopic struct {
	Posts *gqlPosts `json:"posts"`
}

type gqlPosts struct {
	Edges []gqlEdge `json:"edges"`
}

type gqlEdge struct {
	Node *gqlNode `json:"node"`
}

type gqlNode struct {
	Name        string        `json:"name"`
	Tagline     string        `json:"tagline"`
	Description string        `json:"description"`
	CreatedAt   string        `json:"createdAt"`
	VotesCount  int           `json:"votesCount"`
	URL         string        `json:"url"`
	Topics      *gqlTopicConn `json:"topics"`
}

type gqlTopicConn struct {
	Edges []gqlTopicEdge `json:"edges"`
}

type gqlTopicEdge struct {
	Node *gqlTopicNode `json:"node"`
}

type gqlTopicNode struct {
	Name string `json:"name"`
}

// edges returns the post edges from whichever response shape the server
// used: topic-scoped first, then global.
func (r *gqlResponse) edges() []gqlEdge {
	if r.Data == nil {
		return nil
	}
	if edges, ok := topicEdges(r.Data); ok {
		return edges
	}
	return globalEdges(r.Data)
}

// topicEdges returns the edges under data.topic.posts. ok is false when the
// topic shape is absent entirely, which is different from a topic with zero
// posts.
func topicEdges(data *gqlData) ([]gqlEdge, bool) {
	if data.Topic == nil || data.Topic.Posts == nil {
		return nil, false
	}
	return data.Topic.Posts.Edges, true
}

// globalEdges returns the edges under data.posts, or nil when absent.
func globalEdges(data *gqlData) []gqlEdge {
	if data.Posts == nil {
		return nil
	}
	return data.Posts.Edges
}

// buildProducts converts edges into products and applies the keyword filter.
// Strict terms get the word-boundary AI filter, anything else a substring
// match; an empty filter passes everything through.
func buildProducts(edges []gqlEdge, localFilter string) []models.Product {
	strict := filter.IsStrictTerm(localFilter)
	products := make([]models.Product, 0, len(edges))
	for _, edge := range edges {
		if edge.Node == nil {
			continue
		}
		p, err := nodeToProduct(edge.Node)
		if err != nil {
			continue
		}
		switch {
		case localFilter == "":
			products = append(products, p)
		case strict && filter.MatchesStrict(p.SearchableText(), p.Topics):
			products = append(products, p)
		case !strict && filter.MatchesLoose(p.SearchableText(), localFilter):
			products = append(products, p)
		}
	}
	return products
}

func nodeToProduct(node *gqlNode) (models.Product, error) {
	topics := make([]string, 0, 4)
	if node.Topics != nil {
		for _, te := range node.Topics.Edges {
			if te.Node != nil && te.Node.Name != "" {
				topics = append(topics, te.Node.Name)
			}
		}
	}
	opts := []models.ProductOption{
		models.WithTagline(node.Tagline),
		models.WithDescription(node.Description),
		models.WithVotes(node.VotesCount),
		models.WithURL(node.URL),
		models.WithTopics(topics),
	}
	if posted, ok := parsePostedAt(node.CreatedAt); ok {
		opts = append(opts, models.WithPostedAt(posted))
	}
	return models.NewProduct(node.Name, opts...)
}

func parsePostedAt(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
