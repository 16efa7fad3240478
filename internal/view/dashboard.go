package view

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/me/journal/internal/session"
	"github.com/me/journal/pkg/model"
)

// Mode is the state of the shared add/edit form.
type Mode string

const (
	ModeClosed Mode = ""
	ModeAdd    Mode = "add"
	ModeEdit   Mode = "edit"
)

// Dashboard is the personal journal list with its add/edit form and the
// profile actions.
type Dashboard struct {
	sess    *session.Session
	backend JournalBackend

	mu        sync.Mutex
	journals  []model.Journal
	loaded    bool
	loadedFor string
	banner    string
	mode      Mode
	draft     model.Journal
}

// NewDashboard returns an unloaded dashboard. backend must authorize with
// sess's token.
func NewDashboard(sess *session.Session, backend JournalBackend) *Dashboard {
	return &Dashboard{sess: sess, backend: backend}
}

// Stale reports whether the list has never been loaded or was loaded under
// a different token.
func (d *Dashboard) Stale() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.loaded || d.loadedFor != d.sess.Token()
}

// Load fetches the journal list. On failure the banner is set and the
// previous list stays.
func (d *Dashboard) Load(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	token := d.sess.Token()
	list, err := d.backend.ListJournals(ctx)
	if err != nil {
		d.banner = MsgFetchJournals
		return alert(MsgFetchJournals, err)
	}
	d.journals = list
	d.loaded = true
	d.loadedFor = token
	d.banner = ""
	return nil
}

// Banner returns the fetch error banner, or "".
func (d *Dashboard) Banner() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.banner
}

// Journals returns a copy of the full list.
func (d *Dashboard) Journals() []model.Journal {
	return d.Filter("")
}

// Filter returns the entries whose title or content contains query,
// ignoring case. An empty query returns everything.
func (d *Dashboard) Filter(query string) []model.Journal {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]model.Journal, 0, len(d.journals))
	for _, j := range d.journals {
		if j.Matches(query) {
			out = append(out, j)
		}
	}
	return out
}

// OpenAdd opens the form for a new entry.
func (d *Dashboard) OpenAdd() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mode = ModeAdd
	d.draft = model.Journal{}
}

// OpenEdit opens the form on the entry with the given ID.
func (d *Dashboard) OpenEdit(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexOf(id)
	if i < 0 {
		return fmt.Errorf("journal %s not found", id)
	}
	d.mode = ModeEdit
	d.draft = d.journals[i]
	return nil
}

// Close closes the form and drops the draft.
func (d *Dashboard) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mode = ModeClosed
	d.draft = model.Journal{}
}

// Mode returns the form mode.
func (d *Dashboard) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// Draft returns the entry being edited, or an empty entry in add mode.
func (d *Dashboard) Draft() model.Journal {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draft
}

// Save submits the form. Add mode creates the entry and puts it at the head
// of the list; edit mode updates it in place. The form closes on success and
// stays open on failure.
func (d *Dashboard) Save(ctx context.Context, in model.JournalInput) (*model.Journal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || strings.TrimSpace(in.Content) == "" {
		if d.mode != ModeClosed {
			d.draft.Title, d.draft.Content = in.Title, in.Content
		}
		return nil, alert(MsgJournalRequired, nil)
	}

	var (
		saved *model.Journal
		err   error
	)
	switch d.mode {
	case ModeAdd:
		saved, err = d.backend.CreateJournal(ctx, in)
	case ModeEdit:
		saved, err = d.backend.UpdateJournal(ctx, d.draft.ID, in)
	default:
		return nil, ErrFormClosed
	}
	if err != nil {
		d.draft.Title, d.draft.Content = in.Title, in.Content
		return nil, alert(MsgSaveJournal, err)
	}

	if d.mode == ModeAdd {
		d.journals = append([]model.Journal{*saved}, d.journals...)
	} else if i := d.indexOf(saved.ID); i >= 0 {
		d.journals[i] = *saved
	}
	d.mode = ModeClosed
	d.draft = model.Journal{}
	return saved, nil
}

// Delete removes the entry with the given ID after confirmation.
func (d *Dashboard) Delete(ctx context.Context, id string, c Confirmer) error {
	if !confirmed(c, ConfirmDeleteJournal) {
		return ErrCancelled
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.backend.DeleteJournal(ctx, id); err != nil {
		return alert(MsgDeleteJournal, err)
	}
	if i := d.indexOf(id); i >= 0 {
		d.journals = append(d.journals[:i:i], d.journals[i+1:]...)
	}
	return nil
}

// UpdateProfile submits the whole profile. A changed username is carried
// into the session.
func (d *Dashboard) UpdateProfile(ctx context.Context, p model.Profile) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.backend.UpdateProfile(ctx, p); err != nil {
		return alert(MsgUpdateProfile, err)
	}
	if name := strings.TrimSpace(p.Username); name != "" {
		if err := d.sess.SetUsername(ctx, name); err != nil {
			return alert(MsgUpdateProfile, err)
		}
	}
	return nil
}

// DeleteProfile deletes the account after confirmation and signs out.
// It returns the route to show next.
func (d *Dashboard) DeleteProfile(ctx context.Context, c Confirmer) (string, error) {
	if !confirmed(c, ConfirmDeleteProfile) {
		return "", ErrCancelled
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.backend.DeleteProfile(ctx); err != nil {
		return "", alert(MsgDeleteProfile, err)
	}
	d.journals = nil
	d.loaded = false
	d.mode = ModeClosed
	return Logout(ctx, d.sess)
}

// Welcome returns the greeting line.
func (d *Dashboard) Welcome() string {
	if name := d.sess.Username(); name != "" {
		return "Welcome back, " + name + "!"
	}
	return "Welcome back!"
}

// ShowAdminLink reports whether the admin dashboard link is offered.
func (d *Dashboard) ShowAdminLink() bool {
	return d.sess.IsAdmin()
}

func (d *Dashboard) indexOf(id string) int {
	for i, j := range d.journals {
		if j.ID == id {
			return i
		}
	}
	return -1
}
