package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// In-memory repository fakes backing the service tests. They mirror the
// behavior the Postgres implementations promise: nil-on-miss lookups,
// ErrDuplicateMessage on message id conflicts, idempotent tag attachment.

type fakeTicketRepo struct {
	tickets map[string]*domain.Ticket
	seq     int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*domain.Ticket{}}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.seq++
	ticket.ID = fmt.Sprintf("ticket-%d", r.seq)
	ticket.CreatedAt = time.Now().UTC()
	ticket.UpdatedAt = ticket.CreatedAt
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := r.tickets[ticket.ID]; !ok {
		return fmt.Errorf("ticket %s not found", ticket.ID)
	}
	ticket.UpdatedAt = time.Now().UTC()
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, fmt.Errorf("ticket %s not found", id)
	}
	clone := *ticket
	return &clone, nil
}

func (r *fakeTicketRepo) FindOpenMatch(_ context.Context, ticketContext, subject string, ownerUserID *string) (*domain.Ticket, error) {
	for _, ticket := range r.tickets {
		if ticket.Status != domain.TicketStatusOpen {
			continue
		}
		if ticket.Context != ticketContext || ticket.Subject != subject {
			continue
		}
		if !stringPtrEqual(ticket.OwnerUserID, ownerUserID) {
			continue
		}
		clone := *ticket
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.OwnerUserID != nil && !stringPtrEqual(ticket.OwnerUserID, filter.OwnerUserID) {
			continue
		}
		out = append(out, *ticket)
	}
	return out, nil
}

func (r *fakeTicketRepo) CountByStatus(_ context.Context, status domain.TicketStatus) (int64, error) {
	var count int64
	for _, ticket := range r.tickets {
		if ticket.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *fakeTicketRepo) CountAll(_ context.Context) (int64, error) {
	return int64(len(r.tickets)), nil
}

type fakeEmailMessageRepo struct {
	byMessageID map[string]*domain.EmailMessage
	byTicket    map[string][]*domain.EmailMessage
	filtered    []*domain.EmailMessage
	seq         int
}

func newFakeEmailMessageRepo() *fakeEmailMessageRepo {
	return &fakeEmailMessageRepo{
		byMessageID: map[string]*domain.EmailMessage{},
		byTicket:    map[string][]*domain.EmailMessage{},
	}
}

func (r *fakeEmailMessageRepo) Append(_ context.Context, msg *domain.EmailMessage) error {
	if _, exists := r.byMessageID[msg.MessageID]; exists {
		return repository.ErrDuplicateMessage
	}
	r.seq++
	msg.ID = fmt.Sprintf("email-%d", r.seq)
	msg.ThreadPosition = len(r.byTicket[*msg.TicketID]) + 1
	msg.CreatedAt = time.Now().UTC()
	clone := *msg
	r.byMessageID[msg.MessageID] = &clone
	r.byTicket[*msg.TicketID] = append(r.byTicket[*msg.TicketID], &clone)
	return nil
}

func (r *fakeEmailMessageRepo) InsertFiltered(_ context.Context, msg *domain.EmailMessage) error {
	if _, exists := r.byMessageID[msg.MessageID]; exists {
		return repository.ErrDuplicateMessage
	}
	r.seq++
	msg.ID = fmt.Sprintf("email-%d", r.seq)
	clone := *msg
	r.byMessageID[msg.MessageID] = &clone
	r.filtered = append(r.filtered, &clone)
	return nil
}

func (r *fakeEmailMessageRepo) GetByMessageID(_ context.Context, messageID string) (*domain.EmailMessage, error) {
	msg, ok := r.byMessageID[messageID]
	if !ok {
		return nil, nil
	}
	clone := *msg
	return &clone, nil
}

func (r *fakeEmailMessageRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.EmailMessage, error) {
	var out []domain.EmailMessage
	for _, msg := range r.byTicket[ticketID] {
		out = append(out, *msg)
	}
	return out, nil
}

func (r *fakeEmailMessageRepo) CountByTicket(_ context.Context, ticketID string) (int, error) {
	return len(r.byTicket[ticketID]), nil
}

type fakeTicketMessageRepo struct {
	messages []*domain.TicketMessage
	seq      int
}

func (r *fakeTicketMessageRepo) Create(_ context.Context, msg *domain.TicketMessage) error {
	r.seq++
	msg.ID = fmt.Sprintf("msg-%d", r.seq)
	msg.CreatedAt = time.Now().UTC()
	clone := *msg
	r.messages = append(r.messages, &clone)
	return nil
}

func (r *fakeTicketMessageRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketMessage, error) {
	var out []domain.TicketMessage
	for _, msg := range r.messages {
		if msg.TicketID == ticketID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (r *fakeTicketMessageRepo) CountSenderSince(_ context.Context, ticketID string, sender domain.MessageSender, since time.Time) (int64, error) {
	var count int64
	for _, msg := range r.messages {
		if msg.TicketID == ticketID && msg.Sender == sender && !msg.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type fakeUserRepo struct {
	users map[string]*domain.User
	seq   int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.seq++
	user.ID = fmt.Sprintf("user-%d", r.seq)
	r.users[strings.ToLower(user.Email)] = user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.users[strings.ToLower(user.Email)] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, user := range r.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	user, ok := r.users[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	return user, nil
}

func (r *fakeUserRepo) FindAgentByEmail(_ context.Context, email string) (*domain.User, error) {
	user, ok := r.users[strings.ToLower(email)]
	if !ok || !user.Role.CanBeAssigned() || user.Status != domain.UserStatusActive {
		return nil, nil
	}
	return user, nil
}

func (r *fakeUserRepo) List(_ context.Context, role *domain.UserRole, limit, offset int) ([]domain.User, error) {
	var out []domain.User
	for _, user := range r.users {
		if role != nil && user.Role != *role {
			continue
		}
		out = append(out, *user)
	}
	return out, nil
}

type fakeSLARepo struct {
	defs []*domain.SLADefinition
	seq  int
}

func (r *fakeSLARepo) Create(_ context.Context, def *domain.SLADefinition) error {
	r.seq++
	def.ID = fmt.Sprintf("sla-%d", r.seq)
	def.CreatedAt = time.Now().UTC()
	clone := *def
	r.defs = append(r.defs, &clone)
	return nil
}

func (r *fakeSLARepo) GetByID(_ context.Context, id string) (*domain.SLADefinition, error) {
	for _, def := range r.defs {
		if def.ID == id {
			clone := *def
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeSLARepo) ActiveByPriority(_ context.Context, priority domain.TicketPriority) (*domain.SLADefinition, error) {
	// Newest first, matching the SQL ordering.
	for i := len(r.defs) - 1; i >= 0; i-- {
		if r.defs[i].IsActive && r.defs[i].Priority == priority {
			clone := *r.defs[i]
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeSLARepo) List(_ context.Context) ([]domain.SLADefinition, error) {
	var out []domain.SLADefinition
	for _, def := range r.defs {
		out = append(out, *def)
	}
	return out, nil
}

type fakeRuleRepo struct {
	rules []*domain.RoutingRule
	seq   int
}

func (r *fakeRuleRepo) Create(_ context.Context, rule *domain.RoutingRule) error {
	r.seq++
	rule.ID = fmt.Sprintf("rule-%d", r.seq)
	rule.CreatedAt = time.Now().UTC().Add(time.Duration(r.seq) * time.Millisecond)
	clone := *rule
	r.rules = append(r.rules, &clone)
	return nil
}

func (r *fakeRuleRepo) Update(_ context.Context, rule *domain.RoutingRule) error {
	for i, existing := range r.rules {
		if existing.ID == rule.ID {
			clone := *rule
			r.rules[i] = &clone
			return nil
		}
	}
	return fmt.Errorf("rule %s not found", rule.ID)
}

func (r *fakeRuleRepo) Delete(_ context.Context, id string) error {
	for i, existing := range r.rules {
		if existing.ID == id {
			r.rules = append(r.rules[:i], r.rules[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("rule %s not found", id)
}

func (r *fakeRuleRepo) GetByID(_ context.Context, id string) (*domain.RoutingRule, error) {
	for _, rule := range r.rules {
		if rule.ID == id {
			clone := *rule
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("rule %s not found", id)
}

func (r *fakeRuleRepo) ListActive(_ context.Context, orgID *string) ([]domain.RoutingRule, error) {
	var out []domain.RoutingRule
	for _, rule := range r.rules {
		if rule.IsActive && stringPtrEqual(rule.OrganizationID, orgID) {
			out = append(out, *rule)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *fakeRuleRepo) List(_ context.Context, orgID *string) ([]domain.RoutingRule, error) {
	var out []domain.RoutingRule
	for _, rule := range r.rules {
		if stringPtrEqual(rule.OrganizationID, orgID) {
			out = append(out, *rule)
		}
	}
	return out, nil
}

type fakeRoutingLogRepo struct {
	entries []*domain.RoutingLog
	seq     int
}

func (r *fakeRoutingLogRepo) Create(_ context.Context, entry *domain.RoutingLog) error {
	r.seq++
	entry.ID = fmt.Sprintf("log-%d", r.seq)
	entry.CreatedAt = time.Now().UTC()
	clone := *entry
	r.entries = append(r.entries, &clone)
	return nil
}

func (r *fakeRoutingLogRepo) ListByTicket(_ context.Context, ticketID string, limit int) ([]domain.RoutingLog, error) {
	var out []domain.RoutingLog
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			out = append(out, *entry)
		}
	}
	return out, nil
}

type fakeTagRepo struct {
	tags        map[string]*domain.Tag
	attachments map[string]map[string]bool
	seq         int
}

func newFakeTagRepo() *fakeTagRepo {
	return &fakeTagRepo{
		tags:        map[string]*domain.Tag{},
		attachments: map[string]map[string]bool{},
	}
}

func (r *fakeTagRepo) Create(_ context.Context, tag *domain.Tag) error {
	r.seq++
	tag.ID = fmt.Sprintf("tag-%d", r.seq)
	tag.Name = strings.ToLower(tag.Name)
	r.tags[tag.Name] = tag
	return nil
}

func (r *fakeTagRepo) GetByName(_ context.Context, name string) (*domain.Tag, error) {
	tag, ok := r.tags[strings.ToLower(name)]
	if !ok {
		return nil, nil
	}
	return tag, nil
}

func (r *fakeTagRepo) IDsByNames(_ context.Context, names []string) (map[string]string, error) {
	out := map[string]string{}
	for _, name := range names {
		if tag, ok := r.tags[strings.ToLower(name)]; ok {
			out[tag.Name] = tag.ID
		}
	}
	return out, nil
}

func (r *fakeTagRepo) List(_ context.Context) ([]domain.Tag, error) {
	var out []domain.Tag
	for _, tag := range r.tags {
		out = append(out, *tag)
	}
	return out, nil
}

func (r *fakeTagRepo) AttachTicketTag(_ context.Context, ticketID, tagID string) error {
	if r.attachments[ticketID] == nil {
		r.attachments[ticketID] = map[string]bool{}
	}
	r.attachments[ticketID][tagID] = true
	return nil
}

func (r *fakeTagRepo) ListTicketTagNames(_ context.Context, ticketID string) ([]string, error) {
	var out []string
	for _, tag := range r.tags {
		if r.attachments[ticketID][tag.ID] {
			out = append(out, tag.Name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// fakeDispatcher records published events for assertions.
type fakeDispatcher struct {
	published []events.Event
}

func (d *fakeDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *fakeDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *fakeDispatcher) ofType(eventType events.EventType) []events.Event {
	var out []events.Event
	for _, event := range d.published {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
