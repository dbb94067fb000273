package bootstrap

import (
	"context"
	"sort"

	"asksource-be/internal/entity"
	"asksource-be/pkg/apperror"
	"asksource-be/pkg/chat/store"
	"asksource-be/pkg/identity"
)

// Source lists and provisions the caller's conversations.
type Source interface {
	ListConversations(ctx context.Context) ([]entity.Conversation, error)
	CreateConversation(ctx context.Context, title string) (*entity.Conversation, error)
}

// ProjectSource lists the projects the caller may query.
type ProjectSource interface {
	ListProjects(ctx context.Context) ([]string, error)
}

const DefaultTitle = "New chat"

type Bootstrapper struct {
	source   Source
	projects ProjectSource
	store    *store.Store
}

// New wires a bootstrapper. projects may be nil.
func New(source Source, projects ProjectSource, st *store.Store) *Bootstrapper {
	return &Bootstrapper{source: source, projects: projects, store: st}
}

// Run loads the caller's conversations into the store and selects the most recently
// updated one. When the caller has none, one is provisioned and the list fetched again.
// On any error the store is left as it was.
func (b *Bootstrapper) Run(ctx context.Context) error {
	if identity.FromContext(ctx) == nil {
		return apperror.ErrUnauthenticated
	}

	conversations, err := b.source.ListConversations(ctx)
	if err != nil {
		return err
	}

	if len(conversations) == 0 {
		if _, err := b.source.CreateConversation(ctx, DefaultTitle); err != nil {
			return err
		}
		conversations, err = b.source.ListConversations(ctx)
		if err != nil {
			return err
		}
		if len(conversations) == 0 {
			return apperror.New(apperror.KindNotFound, "provisioned conversation is not listed")
		}
	}

	var project string
	if b.projects != nil && b.store.Project() == "" {
		projects, err := b.projects.ListProjects(ctx)
		if err != nil {
			return err
		}
		if len(projects) > 0 {
			project = projects[0]
		}
	}

	SortByLastUpdated(conversations)

	b.store.ReplaceConversations(conversations)
	if err := b.store.SetActiveConversation(conversations[0].Id); err != nil {
		return err
	}
	if project != "" {
		b.store.SelectProject(project)
	}
	return nil
}

// SortByLastUpdated orders conversations most recently updated first. Ties keep their order.
func SortByLastUpdated(conversations []entity.Conversation) {
	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].LastUpdated().After(conversations[j].LastUpdated())
	})
}
