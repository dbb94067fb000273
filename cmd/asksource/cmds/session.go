package cmds

import (
	"context"
	"strings"

	"asksource-be/internal/config"
	"asksource-be/internal/pkg/logger"
	"asksource-be/pkg/answering"
	"asksource-be/pkg/apiclient"
	"asksource-be/pkg/apperror"
	"asksource-be/pkg/chat/bootstrap"
	"asksource-be/pkg/chat/dispatch"
	"asksource-be/pkg/chat/persistence"
	"asksource-be/pkg/chat/pipeline"
	"asksource-be/pkg/chat/store"
	"asksource-be/pkg/identity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// session is one signed-in terminal run: the store plus everything that reads or
// writes it.
type session struct {
	ctx      context.Context
	log      logger.ILogger
	source   bootstrap.Source
	projects bootstrap.ProjectSource
	store    *store.Store
	pipeline *pipeline.Pipeline
}

func newSession(ctx context.Context, cfg *config.Config, opts *rootOptions) (*session, error) {
	id, err := identityFromToken(opts.token)
	if err != nil {
		return nil, err
	}

	log := logger.NewIsolatedLogger(cfg.Client.LogFilePath)
	api := apiclient.New(opts.backendURL, cfg.Answering.Timeout)

	var answerer answering.Answerer = api.Proxy()
	if opts.direct {
		answerer = answering.NewClient(cfg.Answering.BaseURL, cfg.Answering.Timeout)
	}

	st := store.New()
	return &session{
		ctx:      identity.WithContext(ctx, id),
		log:      log,
		source:   api,
		projects: api,
		store:    st,
		pipeline: pipeline.New(st, answerer, api, log),
	}, nil
}

func newSessionWith(ctx context.Context, source bootstrap.Source, projects bootstrap.ProjectSource, answerer answering.Answerer, adapter persistence.Adapter, log logger.ILogger) *session {
	st := store.New()
	return &session{
		ctx:      ctx,
		log:      log,
		source:   source,
		projects: projects,
		store:    st,
		pipeline: pipeline.New(st, answerer, adapter, log),
	}
}

// identityFromToken reads the user_id claim without verifying the signature; the
// backend verifies the token on every call.
func identityFromToken(token string) (*identity.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperror.New(apperror.KindUnauthenticated, "no token: pass --token or set ASKSOURCE_TOKEN")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, apperror.Wrap(apperror.KindUnauthenticated, err, "malformed token")
	}
	raw, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(raw)
	if err != nil || userID == uuid.Nil {
		return nil, apperror.New(apperror.KindUnauthenticated, "token has no user_id claim")
	}
	return &identity.Identity{UserID: userID, Token: token}, nil
}

// start loads conversations and applies the --project and --mode flags.
func (s *session) start(opts *rootOptions) error {
	if opts.project != "" {
		s.store.SelectProject(opts.project)
	}
	if err := bootstrap.New(s.source, s.projects, s.store).Run(s.ctx); err != nil {
		s.log.Error("Terminal", "Bootstrap failed", map[string]interface{}{"error": err.Error()})
		return err
	}
	if opts.mode != "" {
		strategy, err := dispatch.ParseStrategy(opts.mode)
		if err != nil {
			return err
		}
		s.store.SetSearch(dispatch.Params{Strategy: strategy})
	}
	return nil
}
