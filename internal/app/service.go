package app

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"corkboard/api/internal/auth"
	"corkboard/api/internal/authpw"
	"corkboard/api/internal/board"
	"corkboard/api/internal/calendar"
	"corkboard/api/internal/config"
	"corkboard/api/internal/email"
	"corkboard/api/internal/events"
	"corkboard/api/internal/export"
	"corkboard/api/internal/search"
	"corkboard/api/internal/store"
	"corkboard/api/internal/util"
)

// Session is the resolved caller identity attached to every request.
// Email doubles as the board-membership identity.
type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	Email        string
	Name         string
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	GetUserByID(context.Context, string) (store.User, error)
	GetUserByEmail(context.Context, string) (store.User, error)
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
	SaveBoard(context.Context, *board.Board) error
	LoadBoard(context.Context, string) (*board.Board, error)
	DeleteBoard(context.Context, string) error
	MemberPrivilege(context.Context, string, string) (board.Privilege, error)
	ListBoardsForUser(context.Context, string) ([]store.BoardSummary, error)
	Ping(ctx context.Context) error
}

// SessionStore holds refresh sessions. Redis when configured, the Postgres
// store otherwise; both satisfy this.
type SessionStore interface {
	SaveRefreshSession(context.Context, string, store.User, time.Time) error
	LookupRefreshSession(context.Context, string) (store.User, error)
	RevokeRefreshSession(context.Context, string) error
}

type cardIndex interface {
	IndexCard(search.CardRecord) error
	DeleteCard(boardUID, cardID string) error
	DeleteBoard(boardUID string, cardIDs []string) error
	Search(q search.Query) ([]search.Result, int, error)
	Healthy() bool
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions SessionStore
	hub      *events.Hub
	authpw   *authpw.Service
	mail     *email.Service
	index    cardIndex
	exporter *export.Service
	calendar *calendar.Signer
	log      *logrus.Logger
}

func New(cfg config.Config, dataStore dataStore, sessions SessionStore, hub *events.Hub, authSvc *authpw.Service, mail *email.Service, index cardIndex, exporter *export.Service, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		hub:      hub,
		authpw:   authSvc,
		mail:     mail,
		index:    index,
		exporter: exporter,
		calendar: calendar.NewSigner([]byte(cfg.TokenSecret)),
		log:      log,
	}
}

func (s *Service) AuthPasswordService() *authpw.Service {
	return s.authpw
}

func (s *Service) Hub() *events.Hub {
	return s.hub
}

func (s *Service) IssueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:   user.ID,
		Email: user.Email,
		Name:  user.DisplayName,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		Email:        user.Email,
		Name:         user.DisplayName,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	cached, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	// Session stores may carry a trimmed user record; re-read the
	// authoritative row before minting new tokens.
	user, err := s.store.GetUserByID(ctx, cached.ID)
	if err != nil {
		return Session{}, err
	}
	return s.IssueSession(ctx, user)
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.DisplayName,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) SMTPConfigured() bool {
	return s.mail != nil && s.mail.IsConfigured()
}

// SendVerificationEmail is best effort; signup succeeds either way.
func (s *Service) SendVerificationEmail(to, name, token string) {
	if !s.SMTPConfigured() || token == "" {
		return
	}
	url := strings.TrimRight(s.cfg.BaseURL, "/") + "/verify-email?token=" + token
	if err := s.mail.SendVerificationEmail(to, name, url); err != nil {
		s.log.WithError(err).WithField("to", to).Warn("verification email failed")
	}
}

func (s *Service) SendPasswordResetEmail(to, token string) {
	if !s.SMTPConfigured() || token == "" {
		return
	}
	url := strings.TrimRight(s.cfg.BaseURL, "/") + "/reset-password?token=" + token
	if err := s.mail.SendPasswordResetEmail(to, "", url); err != nil {
		s.log.WithError(err).WithField("to", to).Warn("password reset email failed")
	}
}
