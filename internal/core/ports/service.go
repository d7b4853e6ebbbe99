package ports

import (
	"context"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
)

type AuthService interface {
	NewCaptcha(ctx context.Context) (domain.Challenge, error)
	SignUp(ctx context.Context, req domain.SignUpRequest) (*domain.Identity, error)
	SignIn(ctx context.Context, req domain.SignInRequest) (*domain.Session, error)
	AdminSignIn(ctx context.Context, req domain.AdminSignInRequest) (*domain.Session, error)
	SignOut(ctx context.Context, identity *domain.Identity) error
	CurrentIdentity(ctx context.Context, token string) (*domain.Identity, error)
}

type WorkflowService interface {
	Submit(ctx context.Context, actor *domain.Identity, payload domain.Payload) (string, error)
	Transition(ctx context.Context, actor *domain.Identity, kind domain.Kind, id string, to domain.Status) error
	MarkSeen(ctx context.Context, actor *domain.Identity, kind domain.Kind, id string) error
	List(ctx context.Context, actor *domain.Identity, kind domain.Kind) ([]domain.Record, error)
	ClearRegistrationHistory(ctx context.Context, actor *domain.Identity) (int, error)
}

type NoticeService interface {
	Publish(ctx context.Context, actor *domain.Identity, kind domain.Kind, payload domain.NoticePayload) (string, error)
	Delete(ctx context.Context, actor *domain.Identity, kind domain.Kind, id string) error
	List(ctx context.Context, kind domain.Kind) ([]domain.Record, error)
}

type ProfileService interface {
	UpdateProfile(ctx context.Context, actor *domain.Identity, profile domain.Profile) error
	SaveNote(ctx context.Context, actor *domain.Identity, date, text string) error
}

// ViewRequest declares one live view: the query it mirrors, the dashboard
// view it belongs to and an optional pure transform applied per snapshot.
type ViewRequest struct {
	ViewID    string
	Query     domain.Query
	Transform func([]domain.Record) []domain.Record
}

type Subscription interface {
	Snapshots() <-chan domain.Snapshot
	Unsubscribe()
}

type LiveViewService interface {
	Subscribe(ctx context.Context, req ViewRequest) (Subscription, error)
}
