package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trackitnow-backend/internal/store"
	"trackitnow-backend/internal/types"
)

// Reply texts.
const (
	PromptReply        = "Ask a question about the app's features."
	FallbackReply      = "Sorry, I don't know how to answer that."
	AskCodeReply       = "What is the parcel's tracking code?"
	RegistrationReply  = "To register, fill in the sign-up form in the app with your name, email and password."
	LoginReply         = "To log in, open the login page and enter the email and password you registered with."
	ModifyParcelReply  = "To modify a parcel, open it from your parcel list and use the Edit button."
	DeleteParcelReply  = "To delete a parcel, open it from your parcel list and use the Delete button."
	AcceptRefuseReply  = "Couriers accept or refuse a delivery from their parcel list using the Accept and Refuse buttons."
	userCountFormat    = "There are currently %d registered user(s)."
	parcelCountFormat  = "There are currently %d registered parcels."
	parcelNotFoundText = "No parcel found with code %s"
)

const recentParcelsLimit = 5

type UserCounter interface {
	CountUsers(ctx context.Context) (int64, error)
}

type ParcelReader interface {
	CountParcels(ctx context.Context) (int64, error)
	FindParcelByCode(ctx context.Context, code string) (*types.Parcel, error)
	CountParcelsByStatus(ctx context.Context) ([]types.StatusCount, error)
	RecentParcels(ctx context.Context, limit int) ([]types.Parcel, error)
}

// Reply is the text to send back and the session context to persist.
type Reply struct {
	Text    string
	Context store.SessionContext
}

// Failure reports a collaborator error raised while answering an intent.
type Failure struct {
	Action Action
	Err    error
}

func (f *Failure) Error() string { return f.Err.Error() }
func (f *Failure) Unwrap() error { return f.Err }

// FailureReply renders err as the user-facing text of a failed turn.
func FailureReply(err error) string {
	return "Internal error: " + err.Error()
}

// Dispatcher performs the side effects of an intent and phrases the answer.
type Dispatcher struct {
	users   UserCounter
	parcels ParcelReader
}

func NewDispatcher(users UserCounter, parcels ParcelReader) *Dispatcher {
	return &Dispatcher{users: users, parcels: parcels}
}

// Respond answers intent. On failure the returned error is a *Failure and
// Reply.Context still holds the context to persist.
func (d *Dispatcher) Respond(ctx context.Context, intent Intent, rawQuestion string, sc store.SessionContext) (Reply, error) {
	next := sc.Clone()
	text, err := d.respond(ctx, intent, rawQuestion, next)
	if err != nil {
		return Reply{Context: next}, &Failure{Action: intent.Action, Err: err}
	}
	return Reply{Text: text, Context: next}, nil
}

func (d *Dispatcher) respond(ctx context.Context, intent Intent, rawQuestion string, next store.SessionContext) (string, error) {
	switch intent.Action {
	case ActionCountUsers:
		n, err := d.users.CountUsers(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(userCountFormat, n), nil
	case ActionRegistration:
		return RegistrationReply, nil
	case ActionLogin:
		return LoginReply, nil
	case ActionCountParcels:
		n, err := d.parcels.CountParcels(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(parcelCountFormat, n), nil
	case ActionParcelStatus:
		code := intent.TrackingCode()
		if code == "" {
			next[store.KeyAwaitingCode] = true
			return AskCodeReply, nil
		}
		return d.parcelStatus(ctx, code, next)
	case ActionDashboard:
		return d.dashboard(ctx)
	case ActionModifyParcel:
		return ModifyParcelReply, nil
	case ActionDeleteParcel:
		return DeleteParcelReply, nil
	case ActionAcceptOrRefuse:
		return AcceptRefuseReply, nil
	}

	if next.AwaitingCode() {
		delete(next, store.KeyAwaitingCode)
		return d.parcelStatus(ctx, strings.ToUpper(strings.TrimSpace(rawQuestion)), next)
	}
	return FallbackReply, nil
}

func (d *Dispatcher) parcelStatus(ctx context.Context, code string, next store.SessionContext) (string, error) {
	p, err := d.parcels.FindParcelByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf(parcelNotFoundText, code), nil
	}
	if err != nil {
		return "", err
	}
	next[store.KeyTrackingCode] = code
	return describeParcel(code, p), nil
}

func describeParcel(code string, p *types.Parcel) string {
	status := p.Status
	if status == "" {
		status = "Unknown"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Parcel %s is currently in status: %s.", code, status)
	if p.Position != nil {
		fmt.Fprintf(&b, " Last known position: %.5f, %.5f.", p.Position.Latitude, p.Position.Longitude)
	}
	if len(p.History) > 0 {
		steps := make([]string, 0, len(p.History))
		for _, h := range p.History {
			steps = append(steps, fmt.Sprintf("%s (%s)", h.Status, h.Date.UTC().Format("2006-01-02 15:04")))
		}
		fmt.Fprintf(&b, " History: %s.", strings.Join(steps, ", "))
	}
	return b.String()
}

func (d *Dispatcher) dashboard(ctx context.Context) (string, error) {
	total, err := d.parcels.CountParcels(ctx)
	if err != nil {
		return "", err
	}
	groups, err := d.parcels.CountParcelsByStatus(ctx)
	if err != nil {
		return "", err
	}
	recent, err := d.parcels.RecentParcels(ctx, recentParcelsLimit)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "There are %d parcels in total.", total)
	if len(groups) > 0 {
		parts := make([]string, 0, len(groups))
		for _, g := range groups {
			parts = append(parts, fmt.Sprintf("%s: %d", g.Status, g.Count))
		}
		fmt.Fprintf(&b, " By status: %s.", strings.Join(parts, ", "))
	}
	if len(recent) > 0 {
		parts := make([]string, 0, len(recent))
		for _, p := range recent {
			parts = append(parts, fmt.Sprintf("%s (%s)", p.TrackingCode, p.Status))
		}
		fmt.Fprintf(&b, " Latest parcels: %s.", strings.Join(parts, ", "))
	}
	return b.String(), nil
}
