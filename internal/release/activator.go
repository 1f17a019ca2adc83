package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/DripEmail/gurgler/internal/catalog"
	"github.com/DripEmail/gurgler/internal/config"
	"github.com/DripEmail/gurgler/internal/notify"
	"github.com/DripEmail/gurgler/internal/params"
)

// Invoker performs a delegated release mutation for environments whose
// parameter store is not directly writable by the caller's credentials.
type Invoker interface {
	Invoke(ctx context.Context, function string, payload []byte) error
}

// activationPayload is the request body sent to a delegated activation
// function.
type activationPayload struct {
	ParameterName string `json:"parameterName"`
	Value         string `json:"value"`
}

// Activator performs the release mutation and announces the outcome.
type Activator struct {
	cfg      *config.Config
	store    params.Store
	invoker  Invoker
	notifier notify.Notifier
	operator string
	out      io.Writer
	log      *slog.Logger
}

// NewActivator creates an Activator. invoker may be nil when no
// environment delegates activation; notifier may be nil when the
// notification group is not configured. operator is the identity shown
// in notifications, injected rather than read from ambient state.
func NewActivator(cfg *config.Config, store params.Store, invoker Invoker, notifier notify.Notifier, operator string, out io.Writer, log *slog.Logger) *Activator {
	return &Activator{
		cfg:      cfg,
		store:    store,
		invoker:  invoker,
		notifier: notifier,
		operator: operator,
		out:      out,
		log:      log,
	}
}

// Activate points the environment's release parameter at the artifact's
// build hash, either directly (last-write-wins overwrite; concurrent
// releases race and the last write is visible) or through the server
// class's delegated activation function. On success it prints a
// confirmation line and sends a best-effort notification.
func (a *Activator) Activate(ctx context.Context, env config.Environment, rec catalog.Record) error {
	if fn, ok := a.cfg.ActivationFunction(env.ServerClass); ok {
		if err := a.invokeActivation(ctx, fn, env, rec); err != nil {
			return &ActivationError{Environment: env.Key, Err: err}
		}
	} else {
		if err := a.store.Put(ctx, env.ParameterName, rec.BuildHash); err != nil {
			return &ActivationError{Environment: env.Key, Err: err}
		}
	}

	fmt.Fprintf(a.out, "Released build %s (revision %s) to %s.\n",
		rec.ShortHash(), rec.ShortRevision(), env.Key)
	a.notifyRelease(ctx, env, rec)
	return nil
}

func (a *Activator) invokeActivation(ctx context.Context, function string, env config.Environment, rec catalog.Record) error {
	payload, err := json.Marshal(activationPayload{
		ParameterName: env.ParameterName,
		Value:         rec.BuildHash,
	})
	if err != nil {
		return fmt.Errorf("encode activation payload: %w", err)
	}
	if a.invoker == nil {
		return fmt.Errorf("server class %q delegates activation but no invoker is configured", env.ServerClass)
	}
	return a.invoker.Invoke(ctx, function, payload)
}

// notifyRelease is fire-and-forget: a chat outage must not fail a
// release that already happened.
func (a *Activator) notifyRelease(ctx context.Context, env config.Environment, rec catalog.Record) {
	if a.notifier == nil || env.Channel == "" {
		return
	}

	label := env.Label
	if label == "" {
		label = env.Key
	}
	text := fmt.Sprintf("%s released %s to %s", a.operator, rec.Label(), label)
	if a.cfg.Notify.RepoURL != "" && rec.RevisionID != "" {
		text += fmt.Sprintf(" (<%s/commit/%s|%s>)", a.cfg.Notify.RepoURL, rec.RevisionID, rec.ShortRevision())
	}

	msg := notify.Message{
		Channel:  env.Channel,
		Username: a.cfg.Notify.Username,
		Icon:     a.cfg.Notify.Icon,
		Text:     text,
	}
	if err := a.notifier.Send(ctx, msg); err != nil {
		a.log.Warn("release notification failed", "channel", env.Channel, "error", err)
	}
}
