package bootstrap

import (
	"context"
	"testing"
	"time"

	"asksource-be/internal/entity"
	"asksource-be/pkg/apperror"
	"asksource-be/pkg/chat/store"
	"asksource-be/pkg/identity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	lists     [][]entity.Conversation
	listErr   error
	createErr error
	listCalls int
	created   []string
}

func (f *fakeSource) ListConversations(ctx context.Context) ([]entity.Conversation, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	i := f.listCalls
	f.listCalls++
	if i >= len(f.lists) {
		return nil, nil
	}
	return f.lists[i], nil
}

func (f *fakeSource) CreateConversation(ctx context.Context, title string) (*entity.Conversation, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, title)
	return &entity.Conversation{Id: uuid.New(), Title: title}, nil
}

type fakeProjects struct {
	projects []string
	err      error
}

func (f fakeProjects) ListProjects(ctx context.Context) ([]string, error) {
	return f.projects, f.err
}

func authed() context.Context {
	return identity.WithContext(context.Background(), &identity.Identity{UserID: uuid.New()})
}

func at(hour int) *time.Time {
	ts := time.Date(2024, 5, 2, hour, 0, 0, 0, time.UTC)
	return &ts
}

// Scenario D: no conversations yet, one is provisioned, listed once more and selected.
func TestRunProvisionsFirstConversation(t *testing.T) {
	provisioned := entity.Conversation{Id: uuid.New(), Title: DefaultTitle, CreatedAt: *at(9)}
	src := &fakeSource{lists: [][]entity.Conversation{{}, {provisioned}}}
	st := store.New()

	require.NoError(t, New(src, nil, st).Run(authed()))

	assert.Equal(t, []string{DefaultTitle}, src.created)
	assert.Equal(t, 2, src.listCalls)
	active, ok := st.ActiveConversation()
	require.True(t, ok)
	assert.Equal(t, provisioned.Id, active.Id)
	assert.Empty(t, active.Turns)
}

func TestRunSelectsMostRecentlyUpdated(t *testing.T) {
	old := entity.Conversation{Id: uuid.New(), CreatedAt: *at(1), UpdatedAt: at(2)}
	fresh := entity.Conversation{Id: uuid.New(), CreatedAt: *at(1), UpdatedAt: at(8)}
	neverTouched := entity.Conversation{Id: uuid.New(), CreatedAt: *at(5)}
	src := &fakeSource{lists: [][]entity.Conversation{{old, fresh, neverTouched}}}
	st := store.New()

	require.NoError(t, New(src, nil, st).Run(authed()))

	snap := st.Snapshot()
	require.Len(t, snap.Conversations, 3)
	assert.Equal(t, fresh.Id, snap.Conversations[0].Id)
	assert.Equal(t, neverTouched.Id, snap.Conversations[1].Id)
	assert.Equal(t, old.Id, snap.Conversations[2].Id)
	assert.Equal(t, fresh.Id, snap.ActiveID)
	assert.Empty(t, src.created)
}

func TestRunSelectsFirstProject(t *testing.T) {
	src := &fakeSource{lists: [][]entity.Conversation{{{Id: uuid.New()}}}}
	st := store.New()

	err := New(src, fakeProjects{projects: []string{"Projet Alpha", "Rapport Annuel Q3"}}, st).Run(authed())

	require.NoError(t, err)
	assert.Equal(t, "Projet Alpha", st.Project())
}

func TestRunKeepsSelectedProject(t *testing.T) {
	src := &fakeSource{lists: [][]entity.Conversation{{{Id: uuid.New()}}}}
	st := store.New()
	st.SelectProject("Données Techniques")

	require.NoError(t, New(src, fakeProjects{projects: []string{"Projet Alpha"}}, st).Run(authed()))
	assert.Equal(t, "Données Techniques", st.Project())
}

func TestRunFailuresLeaveStoreUntouched(t *testing.T) {
	cases := []struct {
		name     string
		ctx      context.Context
		src      *fakeSource
		projects ProjectSource
		want     *apperror.Error
	}{
		{
			name: "anonymous",
			ctx:  context.Background(),
			src:  &fakeSource{},
			want: apperror.ErrUnauthenticated,
		},
		{
			name: "list fails",
			ctx:  authed(),
			src:  &fakeSource{listErr: apperror.New(apperror.KindPersistenceFailure, "db down")},
			want: apperror.ErrPersistenceFailure,
		},
		{
			name: "create fails",
			ctx:  authed(),
			src:  &fakeSource{lists: [][]entity.Conversation{{}}, createErr: apperror.ErrUnauthenticated},
			want: apperror.ErrUnauthenticated,
		},
		{
			name: "still empty after provisioning",
			ctx:  authed(),
			src:  &fakeSource{lists: [][]entity.Conversation{{}, {}}},
			want: apperror.ErrNotFound,
		},
		{
			name:     "projects fail",
			ctx:      authed(),
			src:      &fakeSource{lists: [][]entity.Conversation{{{Id: uuid.New()}}}},
			projects: fakeProjects{err: apperror.New(apperror.KindNetworkFailure, "offline")},
			want:     apperror.ErrNetworkFailure,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := store.New()
			before := st.Snapshot()

			err := New(tc.src, tc.projects, st).Run(tc.ctx)

			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.Same(t, before, st.Snapshot())
		})
	}
}

func TestSortByLastUpdatedIsStable(t *testing.T) {
	a := entity.Conversation{Id: uuid.New(), CreatedAt: *at(3)}
	b := entity.Conversation{Id: uuid.New(), CreatedAt: *at(3)}
	list := []entity.Conversation{a, b}

	SortByLastUpdated(list)

	assert.Equal(t, a.Id, list[0].Id)
	assert.Equal(t, b.Id, list[1].Id)
}
