package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/quickdesk/helpdesk-service/internal/config"
	"github.com/quickdesk/helpdesk-service/internal/domain"
	"github.com/quickdesk/helpdesk-service/internal/events"
	"github.com/quickdesk/helpdesk-service/internal/repository"
)

// fakeTicketRepo is an in-memory TicketRepository with the same
// semantics as the postgres implementation: missing rows surface as
// pgx.ErrNoRows, Mutate serializes on a lock, CastVote is
// remove-then-add.
type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	history []domain.TicketChange

	// when set, Delete cascades to the ticket's comments the way the
	// foreign key does in postgres
	comments *fakeCommentRepo
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	cp := *t
	cp.Attachments = append([]string(nil), t.Attachments...)
	cp.Upvotes = append([]string(nil), t.Upvotes...)
	cp.Downvotes = append([]string(nil), t.Downvotes...)
	if t.AssignedTo != nil {
		v := *t.AssignedTo
		cp.AssignedTo = &v
	}
	if t.ResolvedAt != nil {
		v := *t.ResolvedAt
		cp.ResolvedAt = &v
	}
	if t.ClosedAt != nil {
		v := *t.ClosedAt
		cp.ClosedAt = &v
	}
	return &cp
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = uuid.NewString()
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	if ticket.Attachments == nil {
		ticket.Attachments = []string{}
	}
	r.tickets[ticket.ID] = cloneTicket(ticket)
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneTicket(ticket), nil
}

func (r *fakeTicketRepo) Mutate(_ context.Context, id string, fn repository.TicketMutation) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	working := cloneTicket(current)
	entries, err := fn(working)
	if err != nil {
		return nil, err
	}
	working.UpdatedAt = time.Now()
	r.tickets[id] = cloneTicket(working)
	for _, entry := range entries {
		entry.ID = uuid.NewString()
		entry.TicketID = id
		entry.ChangedAt = time.Now()
		r.history = append(r.history, entry)
	}
	return working, nil
}

func (r *fakeTicketRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	if _, ok := r.tickets[id]; !ok {
		r.mu.Unlock()
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	r.mu.Unlock()
	if r.comments != nil {
		r.comments.deleteByTicket(id)
	}
	return nil
}

func (r *fakeTicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.CreatedBy != nil && ticket.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.AssignedTo != nil {
			if ticket.AssignedTo == nil || *ticket.AssignedTo != *filter.AssignedTo {
				continue
			}
		}
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && ticket.Priority != *filter.Priority {
			continue
		}
		if filter.CategoryID != nil && ticket.CategoryID != *filter.CategoryID {
			continue
		}
		if filter.Search != nil {
			needle := strings.ToLower(*filter.Search)
			if !strings.Contains(strings.ToLower(ticket.Subject), needle) &&
				!strings.Contains(strings.ToLower(ticket.Description), needle) {
				continue
			}
		}
		matched = append(matched, *cloneTicket(ticket))
	}

	asc := strings.EqualFold(filter.SortOrder, "asc")
	sort.SliceStable(matched, func(i, j int) bool {
		less := matched[i].CreatedAt.Before(matched[j].CreatedAt)
		if asc {
			return less
		}
		return !less
	})

	total := int64(len(matched))
	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	start := filter.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *fakeTicketRepo) CastVote(_ context.Context, id, principalID string, vote domain.VoteType) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	ticket.Upvotes = removeString(ticket.Upvotes, principalID)
	ticket.Downvotes = removeString(ticket.Downvotes, principalID)
	if vote == domain.VoteUp {
		ticket.Upvotes = append(ticket.Upvotes, principalID)
	} else {
		ticket.Downvotes = append(ticket.Downvotes, principalID)
	}
	return cloneTicket(ticket), nil
}

func (r *fakeTicketRepo) IncrementViewCount(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.ViewCount++
	return nil
}

func (r *fakeTicketRepo) ListHistory(_ context.Context, ticketID string) ([]domain.TicketChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var changes []domain.TicketChange
	for _, change := range r.history {
		if change.TicketID == ticketID {
			changes = append(changes, change)
		}
	}
	return changes, nil
}

func removeString(values []string, target string) []string {
	filtered := values[:0]
	for _, v := range values {
		if v != target {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

// fakeCommentRepo stores comments in insertion order.
type fakeCommentRepo struct {
	mu       sync.Mutex
	comments []*domain.Comment
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{}
}

func cloneComment(c *domain.Comment) *domain.Comment {
	cp := *c
	cp.Attachments = append([]string(nil), c.Attachments...)
	cp.Upvotes = append([]string(nil), c.Upvotes...)
	cp.Downvotes = append([]string(nil), c.Downvotes...)
	if c.ParentID != nil {
		v := *c.ParentID
		cp.ParentID = &v
	}
	cp.Replies = nil
	return &cp
}

func (r *fakeCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	comment.ID = uuid.NewString()
	comment.CreatedAt = time.Now()
	r.comments = append(r.comments, cloneComment(comment))
	return nil
}

func (r *fakeCommentRepo) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, comment := range r.comments {
		if comment.ID == id {
			return cloneComment(comment), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCommentRepo) ListThread(_ context.Context, ticketID string) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var thread []domain.Comment
	for _, comment := range r.comments {
		if comment.TicketID != ticketID || comment.ParentID != nil {
			continue
		}
		top := *cloneComment(comment)
		for _, candidate := range r.comments {
			if candidate.ParentID != nil && *candidate.ParentID == comment.ID {
				top.Replies = append(top.Replies, *cloneComment(candidate))
			}
		}
		thread = append(thread, top)
	}
	return thread, nil
}

func (r *fakeCommentRepo) CastVote(_ context.Context, id, principalID string, vote domain.VoteType) (*domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, comment := range r.comments {
		if comment.ID != id {
			continue
		}
		comment.Upvotes = removeString(comment.Upvotes, principalID)
		comment.Downvotes = removeString(comment.Downvotes, principalID)
		if vote == domain.VoteUp {
			comment.Upvotes = append(comment.Upvotes, principalID)
		} else {
			comment.Downvotes = append(comment.Downvotes, principalID)
		}
		return cloneComment(comment), nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCommentRepo) CountByTicket(_ context.Context, ticketID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, comment := range r.comments {
		if comment.TicketID == ticketID {
			count++
		}
	}
	return count, nil
}

func (r *fakeCommentRepo) deleteByTicket(ticketID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.comments[:0]
	for _, comment := range r.comments {
		if comment.TicketID != ticketID {
			kept = append(kept, comment)
		}
	}
	r.comments = kept
}

// fakeUserRepo keys users by id and enforces email uniqueness with the
// same pg error code the real table raises.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
		}
	}
	user.ID = uuid.NewString()
	user.IsActive = true
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *user
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			cp := *user
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) ListActiveStaff(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var staff []domain.User
	for _, user := range r.users {
		if user.IsActive && user.Role.IsStaff() {
			staff = append(staff, *user)
		}
	}
	sort.Slice(staff, func(i, j int) bool { return staff[i].ID < staff[j].ID })
	return staff, nil
}

func (r *fakeUserRepo) add(role domain.Role) *domain.User {
	user := &domain.User{
		Name:  "user " + uuid.NewString()[:8],
		Email: uuid.NewString() + "@example.com",
		Role:  role,
	}
	_ = r.Create(context.Background(), user)
	return user
}

// fakeCategoryRepo backs the category directory in tests.
type fakeCategoryRepo struct {
	mu         sync.Mutex
	categories map[string]*domain.Category
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{categories: make(map[string]*domain.Category)}
}

func (r *fakeCategoryRepo) Create(_ context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	category.ID = uuid.NewString()
	category.IsActive = true
	category.CreatedAt = time.Now()
	cp := *category
	r.categories[category.ID] = &cp
	return nil
}

func (r *fakeCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	category, ok := r.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *category
	return &cp, nil
}

func (r *fakeCategoryRepo) GetByName(_ context.Context, name string) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, category := range r.categories {
		if strings.EqualFold(category.Name, name) {
			cp := *category
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCategoryRepo) ListActive(_ context.Context) ([]domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var active []domain.Category
	for _, category := range r.categories {
		if category.IsActive {
			active = append(active, *category)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Name < active[j].Name })
	return active, nil
}

// fakeNotificationRepo records notifications in memory.
type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications []*domain.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{}
}

func (r *fakeNotificationRepo) Create(_ context.Context, notification *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	notification.ID = uuid.NewString()
	notification.CreatedAt = time.Now()
	cp := *notification
	r.notifications = append(r.notifications, &cp)
	return nil
}

func (r *fakeNotificationRepo) ListByRecipient(_ context.Context, recipientID string, limit, offset int) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.Notification
	for i := len(r.notifications) - 1; i >= 0; i-- {
		if r.notifications[i].Recipient == recipientID {
			matched = append(matched, *r.notifications[i])
		}
	}
	if limit <= 0 {
		limit = 20
	}
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id, recipientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, notification := range r.notifications {
		if notification.ID == id && notification.Recipient == recipientID {
			notification.IsRead = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeNotificationRepo) byRecipient(recipientID string) []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.Notification
	for _, notification := range r.notifications {
		if notification.Recipient == recipientID {
			matched = append(matched, *notification)
		}
	}
	return matched
}

// syncDispatcher delivers events to handlers inline and records every
// published event, so tests can assert on the stream without waiting.
type syncDispatcher struct {
	mu        sync.Mutex
	listeners map[events.EventType][]events.EventHandler
	published []events.Event
}

func newSyncDispatcher() *syncDispatcher {
	return &syncDispatcher{listeners: make(map[events.EventType][]events.EventHandler)}
}

func (d *syncDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	d.published = append(d.published, event)
	handlers := append([]events.EventHandler{}, d.listeners[event.Type]...)
	d.mu.Unlock()
	for _, handler := range handlers {
		_ = handler(ctx, event)
	}
	return nil
}

func (d *syncDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}

func (d *syncDispatcher) Close() {}

func (d *syncDispatcher) eventsOfType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var matched []events.Event
	for _, event := range d.published {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// workflowFixture wires a WorkflowService against the in-memory fakes
// with one seeded category.
type workflowFixture struct {
	svc        *WorkflowService
	tickets    *fakeTicketRepo
	comments   *fakeCommentRepo
	users      *fakeUserRepo
	categories *fakeCategoryRepo
	dispatcher *syncDispatcher
	category   *domain.Category
}

func newWorkflowFixture() *workflowFixture {
	tickets := newFakeTicketRepo()
	comments := newFakeCommentRepo()
	tickets.comments = comments
	users := newFakeUserRepo()
	categories := newFakeCategoryRepo()
	dispatcher := newSyncDispatcher()

	categoryService := NewCategoryService(categories, nil, time.Minute, zap.NewNop())
	_ = categoryService.Seed(context.Background(), []config.CategorySeed{
		{Name: "Technical", Description: "Technical issues and questions", Color: "#3B82F6"},
	})
	technical, _ := categories.GetByName(context.Background(), "Technical")

	svc := NewWorkflowService(WorkflowDependencies{
		TicketRepo:  tickets,
		CommentRepo: comments,
		UserRepo:    users,
		Categories:  categoryService,
		Dispatcher:  dispatcher,
	})

	return &workflowFixture{
		svc:        svc,
		tickets:    tickets,
		comments:   comments,
		users:      users,
		categories: categories,
		dispatcher: dispatcher,
		category:   technical,
	}
}

func (f *workflowFixture) createTicket(principal domain.Principal, subject string) *domain.Ticket {
	ticket, err := f.svc.CreateTicket(context.Background(), principal, CreateTicketInput{
		Subject:     subject,
		Description: "something went wrong and it keeps happening",
		Category:    CategoryByName("Technical"),
	})
	if err != nil {
		panic(err)
	}
	return ticket
}
