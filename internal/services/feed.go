package services

import "github.com/isdelr/blogpost-be/internal/models"

// Feed actions published after a change commits.
const (
	ActionPostCreated    = "post.created"
	ActionPostUpdated    = "post.updated"
	ActionPostDeleted    = "post.deleted"
	ActionCommentCreated = "comment.created"
	ActionCommentDeleted = "comment.deleted"
)

// FeedPublisher receives change notifications. Publish must not block.
type FeedPublisher interface {
	Publish(action string, category models.Category, payload any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, models.Category, any) {}

func publisherOrNop(p FeedPublisher) FeedPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
