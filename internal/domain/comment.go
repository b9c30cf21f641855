package domain

import "time"

// Comment is a message in a ticket's discussion thread. Threads are two
// tiers deep: a top-level comment may carry replies, a reply may not.
type Comment struct {
	ID          string
	TicketID    string
	AuthorID    string
	Content     string
	IsInternal  bool
	Attachments []string
	Upvotes     []string
	Downvotes   []string
	ParentID    *string
	Replies     []Comment
	CreatedAt   time.Time
}

// IsReply reports whether the comment sits under a parent.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}

// VoteCount is the net score of the vote sets.
func (c *Comment) VoteCount() int {
	return len(c.Upvotes) - len(c.Downvotes)
}
