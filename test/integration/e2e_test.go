package integration

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"asksource-be/internal/bootstrap"
	"asksource-be/internal/config"
	"asksource-be/internal/entity"
	"asksource-be/internal/model"
	"asksource-be/internal/pkg/logger"
	"asksource-be/internal/pkg/serverutils"
	"asksource-be/internal/server"
	"asksource-be/pkg/apiclient"
	"asksource-be/pkg/apperror"
	chatbootstrap "asksource-be/pkg/chat/bootstrap"
	"asksource-be/pkg/chat/dispatch"
	"asksource-be/pkg/chat/pipeline"
	"asksource-be/pkg/chat/store"
	"asksource-be/pkg/database"
	"asksource-be/pkg/identity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

const jwtSecret = "e2e-secret"

// fakeAnswering mimics the retrieval service: a known prompt gets an answer, anything
// else is rejected with rag_no_results.
func fakeAnswering(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		if body.Text != "Quel est le budget ?" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"signal":"rag_no_results"}`))
			return
		}
		_, _ = w.Write([]byte(`{"signal":"rag_answer_success","answer":"Le budget est de 2M€."}`))
	}))
}

func startBackend(t *testing.T, answeringURL string) string {
	t.Helper()
	db, err := database.NewSQLiteDB(":memory:", gormlogger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, model.All()...))

	cfg := &config.Config{
		App: config.AppConfig{
			Environment:        "test",
			LogFilePath:        filepath.Join(t.TempDir(), "app.log"),
			CorsAllowedOrigins: "*",
		},
		Auth:      config.AuthConfig{JWTSecret: jwtSecret, TokenTTL: time.Hour},
		Answering: config.AnsweringConfig{BaseURL: answeringURL, Timeout: 5 * time.Second, LockTTL: time.Minute},
		Projects:  config.ProjectsConfig{Catalog: []string{"Projet Alpha", "Rapport Annuel Q3"}},
		Events:    config.EventsConfig{ChatTopic: "CHAT_EVENTS"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	container := bootstrap.NewContainer(ctx, db, cfg)
	require.NoError(t, container.ConsumerService.Consume(ctx))
	app := server.New(cfg, container).GetApp()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()

	t.Cleanup(func() {
		_ = app.Shutdown()
		cancel()
		container.Close()
	})
	return "http://" + ln.Addr().String()
}

func signedIn(t *testing.T) context.Context {
	t.Helper()
	userID := uuid.New()
	tok, err := serverutils.IssueToken(jwtSecret, userID, time.Hour)
	require.NoError(t, err)
	return identity.WithContext(context.Background(), &identity.Identity{UserID: userID, Token: tok})
}

func TestTerminalSessionAgainstBackend(t *testing.T) {
	answering := fakeAnswering(t)
	defer answering.Close()
	api := apiclient.New(startBackend(t, answering.URL), 5*time.Second)
	ctx := signedIn(t)

	// Bootstrap provisions a first conversation and picks the first project.
	st := store.New()
	require.NoError(t, chatbootstrap.New(api, api, st).Run(ctx))
	conv, ok := st.ActiveConversation()
	require.True(t, ok)
	assert.Equal(t, chatbootstrap.DefaultTitle, conv.Title)
	assert.Equal(t, "Projet Alpha", st.Project())

	p := pipeline.New(st, api.Proxy(), api, logger.NewNopLogger())

	// Successful question: both turns land in the store and in the database.
	st.SetDraft("Quel est le budget ?")
	outcome, err := p.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StateCommitted, outcome.State)
	assert.Empty(t, outcome.Warnings)

	// Rejected question: rolled back locally, nothing persisted.
	st.SetDraft("Autre chose ?")
	outcome, err = p.Submit(ctx)
	require.Error(t, err)
	assert.Equal(t, pipeline.StateRolledBack, outcome.State)
	assert.Equal(t, apperror.KindBackendRejected, apperror.KindOf(err))
	assert.Equal(t, "rag_no_results", apperror.Message(err))
	assert.Equal(t, "Autre chose ?", st.Draft())

	stored, err := api.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Len(t, stored[0].Turns, 2)
	assert.Equal(t, "Quel est le budget ?", stored[0].Turns[0].Content)
	assert.Equal(t, "Le budget est de 2M€.", stored[0].Turns[1].Content)
	assert.Equal(t, "hybrid", stored[0].Turns[1].Metadata["strategy"])

	// A second bootstrap restores the durable copy.
	restored := store.New()
	require.NoError(t, chatbootstrap.New(api, api, restored).Run(ctx))
	again, _ := restored.ActiveConversation()
	assert.Equal(t, conv.Id, again.Id)
	assert.Len(t, again.Turns, 2)
}

func TestConversationsAreScopedToTheCaller(t *testing.T) {
	answering := fakeAnswering(t)
	defer answering.Close()
	api := apiclient.New(startBackend(t, answering.URL), 5*time.Second)

	alice, bob := signedIn(t), signedIn(t)
	conv, err := api.CreateConversation(alice, "Budget")
	require.NoError(t, err)

	list, err := api.ListConversations(bob)
	require.NoError(t, err)
	assert.Empty(t, list)

	err = api.AppendMessage(bob, conv.Id, entity.NewTurn(entity.RoleUser, "intrusion", time.Now()))
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	err = api.AppendMessage(alice, conv.Id, entity.Turn{Role: "system", Content: "x"})
	assert.Equal(t, apperror.KindValidationError, apperror.KindOf(err))

	anonymous := identity.WithContext(context.Background(), &identity.Identity{UserID: uuid.New(), Token: "forged"})
	_, err = api.ListConversations(anonymous)
	assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))
}

func TestProxyMarksConversationBusy(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	var once sync.Once
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { entered <- struct{}{} })
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"signal":"rag_answer_success","answer":"Le budget est de 2M€."}`))
	}))
	defer slow.Close()

	api := apiclient.New(startBackend(t, slow.URL), 5*time.Second)
	ctx := signedIn(t)
	conv, err := api.CreateConversation(ctx, "Budget")
	require.NoError(t, err)

	req, err := dispatch.BuildRequest(dispatch.StrategyHybrid, "Projet Alpha", "Quel est le budget ?", dispatch.Overrides{})
	require.NoError(t, err)
	req.ConversationID = conv.Id

	first := make(chan error, 1)
	go func() {
		_, err := api.Proxy().Answer(ctx, req)
		first <- err
	}()
	<-entered

	_, err = api.Proxy().Answer(ctx, req)
	assert.Equal(t, apperror.KindConversationBusy, apperror.KindOf(err))

	close(release)
	require.NoError(t, <-first)

	// The lock is released once the first answer is back.
	answer, err := api.Proxy().Answer(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Le budget est de 2M€.", answer)
}
