package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"fontana/internal/config"
	"fontana/internal/logging"
	"fontana/internal/notifications"
	"fontana/internal/store"
	"fontana/internal/textutil"
)

// AllLocations is the sentinel slug that expands to every location term.
const AllLocations = "all-locations"

// Notice types.
const (
	TypePlanned      = "planned"
	TypeUnplanned    = "unplanned"
	TypeUnscheduled  = "unscheduled"
	TypeAnnouncement = "announcement"
)

// keyTimeLayout formats the window boundaries inside the tracker key.
const keyTimeLayout = "2006-01-02 15:04:05"

// Skip reasons reported on Result.
const (
	SkipMissing      = "missing"
	SkipRevision     = "revision"
	SkipIncomplete   = "incomplete"
	SkipAnnouncement = "announcement"
	SkipUnchanged    = "unchanged"
)

// Deps are the engine's collaborators.
type Deps struct {
	Store    *store.Store
	Mailer   notifications.Mailer
	Notifier notifications.Service
	Config   config.Alerts
	Logger   *slog.Logger
	Location *time.Location
}

// Engine decides when a saved notice triggers an email.
type Engine struct {
	store    *store.Store
	mailer   notifications.Mailer
	notifier notifications.Service
	cfg      config.Alerts
	logger   *slog.Logger
	loc      *time.Location
}

// Result describes what one save did.
type Result struct {
	Key        string
	Skipped    string
	Subject    string
	Recipients []string
	Events     []store.Event
	Sent       bool
}

// New creates an engine. A nil mailer drops mail.
func New(d Deps) *Engine {
	logger := d.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	mailer := d.Mailer
	if mailer == nil {
		mailer = notifications.NewMailer(nil)
	}
	return &Engine{
		store:    d.Store,
		mailer:   mailer,
		notifier: d.Notifier,
		cfg:      d.Config,
		logger:   logging.NewComponentLogger(logger, "alerts"),
		loc:      loc,
	}
}

// Key is the idempotency key of a notice: "type - slug,slug - start - end".
func Key(alert *store.Alert) string {
	return strings.Join([]string{
		alert.NoticeType,
		strings.Join(alert.Locations, ","),
		formatKeyTime(alert.Start),
		formatKeyTime(alert.End),
	}, " - ")
}

func formatKeyTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(keyTimeLayout)
}

// IsClosing reports whether a notice type closes a location.
func IsClosing(noticeType string) bool {
	switch noticeType {
	case TypePlanned, TypeUnplanned, TypeUnscheduled:
		return true
	default:
		return false
	}
}

// AlertSaved handles one save of an alert post.
func (e *Engine) AlertSaved(ctx context.Context, alertID int64) (Result, error) {
	logger := e.logger.With(logging.Int64("alert_id", alertID))

	alert, err := e.store.GetAlert(ctx, alertID)
	if err != nil {
		return Result{}, fmt.Errorf("load alert %d: %w", alertID, err)
	}
	if alert == nil {
		return Result{Skipped: SkipMissing}, nil
	}
	if alert.IsRevision || alert.IsAutosave {
		return Result{Skipped: SkipRevision}, nil
	}
	if alert.NoticeType == "" || len(alert.Locations) == 0 {
		return Result{Skipped: SkipIncomplete}, nil
	}
	if alert.NoticeType == TypeAnnouncement {
		return Result{Skipped: SkipAnnouncement}, nil
	}

	key := Key(alert)
	if alert.EmailTracker == key {
		logger.Debug("alert unchanged since last email", logging.String("key", key))
		return Result{Key: key, Skipped: SkipUnchanged}, nil
	}

	draft, err := e.compose(ctx, alert)
	if err != nil {
		return Result{}, err
	}
	res := Result{Key: key, Subject: draft.subject, Recipients: draft.recipients, Events: draft.events}

	if len(draft.recipients) > 0 {
		body, err := render(draft.email)
		if err != nil {
			return Result{}, fmt.Errorf("render alert email: %w", err)
		}
		err = e.mailer.Send(ctx, notifications.Message{
			From:     e.cfg.From,
			FromName: e.cfg.FromName,
			To:       draft.recipients,
			Subject:  draft.subject,
			HTML:     body,
		})
		if err != nil {
			logging.ErrorWithContext(logger, "alert email failed", "alert_email_failed",
				logging.String(logging.FieldErrorHint, "check smtp settings"),
				logging.Error(err),
			)
			return res, fmt.Errorf("send alert email: %w", err)
		}
		res.Sent = true
		logger.Info("alert email sent",
			logging.String("subject", draft.subject),
			logging.Int("recipients", len(draft.recipients)),
			logging.Int("events", len(draft.events)),
		)
		if e.notifier != nil {
			if err := e.notifier.Publish(ctx, notifications.EventAlertSent, notifications.Payload{
				"subject":    draft.subject,
				"recipients": len(draft.recipients),
			}); err != nil {
				logging.WarnWithContext(logger, "ntfy publish failed", "notify_failed", logging.Error(err))
			}
		}
	} else {
		logging.WarnWithContext(logger, "alert has no recipients", "alert_no_recipients",
			logging.String(logging.FieldImpact, "no email sent"),
			logging.String(logging.FieldErrorHint, "check staff positions in the alerts config"),
		)
	}

	if err := e.store.SetAlertTracker(ctx, alert.ID, key); err != nil {
		return res, err
	}
	return res, nil
}

type draft struct {
	subject    string
	recipients []string
	events     []store.Event
	email      email
}

func (e *Engine) compose(ctx context.Context, alert *store.Alert) (draft, error) {
	prefix := "New "
	if alert.EmailTracker != "" {
		prefix = "Updated "
	}

	names, locationIDs, err := e.resolveLocations(ctx, alert.Locations)
	if err != nil {
		return draft{}, err
	}
	affects := textutil.JoinNames(names)
	all := slices.Contains(alert.Locations, AllLocations)
	if all {
		affects = "all library locations"
	}

	recipients, err := e.group(ctx, e.cfg.ManagerPositions, nil, nil)
	if err != nil {
		return draft{}, err
	}

	d := draft{
		email: email{
			Tagline:  alert.Title,
			EditLink: e.editLink(alert.ID),
		},
	}

	if IsClosing(alert.NoticeType) {
		d.subject = fmt.Sprintf("%s%q alert posted", prefix, alert.NoticeType+" closing")
		d.email.Class = "warning"
		d.email.Paragraphs = append(d.email.Paragraphs,
			fmt.Sprintf("This notice is to alert you that a library closing has been posted for %s.", affects))

		var slugs []string
		if !all {
			slugs = alert.Locations
		}
		events, err := e.store.EventsOverlapping(ctx, alert.Start, alert.End, slugs)
		if err != nil {
			return draft{}, fmt.Errorf("find conflicting events: %w", err)
		}
		if len(events) > 0 {
			if recipients, err = e.group(ctx, e.cfg.SupervisorPositions, locationIDs, recipients); err != nil {
				return draft{}, err
			}
			for _, event := range events {
				recipients = appendUnique(recipients, event.AuthorEmail)
				d.email.Events = append(d.email.Events, eventLine{
					Title:    event.Title,
					Link:     "https://fontanalib.org/events/" + textutil.Slugify(event.Title),
					Initials: textutil.Initials(event.Venue),
					Start:    event.Start.In(e.loc).Format("Jan. 2, 3pm"),
				})
			}
			d.events = events
		}
	} else {
		d.subject = prefix + alert.NoticeType + " posted"
		d.email.Paragraphs = append(d.email.Paragraphs,
			fmt.Sprintf("A notice/alert has been posted which affects %s.", affects))
	}

	d.email.Paragraphs = append(d.email.Paragraphs, fmt.Sprintf("The public will be alerted beginning %s. The alert will end %s",
		e.displayTime(alert.Start), e.displayTime(alert.End)))
	d.email.Body = alert.Body
	d.recipients = recipients
	return d, nil
}

// resolveLocations maps slugs to location names and term ids in term order.
// The all-locations sentinel selects every location.
func (e *Engine) resolveLocations(ctx context.Context, slugs []string) ([]string, []int64, error) {
	terms, err := e.store.TermsByTaxonomy(ctx, store.TaxLocation)
	if err != nil {
		return nil, nil, fmt.Errorf("load locations: %w", err)
	}
	all := slices.Contains(slugs, AllLocations)
	var (
		names []string
		ids   []int64
	)
	for _, term := range terms {
		if all || slices.Contains(slugs, term.Slug) {
			names = append(names, term.Name)
			ids = append(ids, term.ID)
		}
	}
	return names, ids, nil
}

// group returns the emails of staff in positions, scoped to locationIDs when
// given, appended to list without duplicates.
func (e *Engine) group(ctx context.Context, positions []string, locationIDs []int64, list []string) ([]string, error) {
	if len(positions) == 0 {
		return list, nil
	}
	scope := locationIDs
	if scope != nil && len(scope) == 0 {
		return list, nil
	}
	staff, err := e.store.StaffByPositions(ctx, positions, scope)
	if err != nil {
		return nil, fmt.Errorf("load staff: %w", err)
	}
	for _, member := range staff {
		list = appendUnique(list, member.Email)
	}
	return list, nil
}

func (e *Engine) editLink(id int64) string {
	if e.cfg.EditURL == "" {
		return ""
	}
	return fmt.Sprintf(e.cfg.EditURL, id)
}

func (e *Engine) displayTime(t time.Time) string {
	if t.IsZero() {
		return "when removed"
	}
	return t.In(e.loc).Format("Mon, Jan 2 at 3:04pm")
}

func appendUnique(list []string, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" || slices.Contains(list, value) {
		return list
	}
	return append(list, value)
}
