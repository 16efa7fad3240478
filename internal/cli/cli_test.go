package cli

import (
	"bytes"
	"errors"
	"io/fs"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/me/journal/internal/apistub"
	"github.com/me/journal/internal/logging"
)

type testBackend struct {
	stub        *apistub.Server
	url         string
	sessionFile string
}

// startTestBackend starts the stub backend and returns it with a fresh
// session file location.
func startTestBackend(t *testing.T) *testBackend {
	t.Helper()
	stub, err := apistub.New(apistub.Config{Secret: "test", BcryptCost: bcrypt.MinCost}, logging.Discard())
	if err != nil {
		t.Fatalf("start stub: %v", err)
	}
	ts := httptest.NewServer(stub.Handler())
	t.Cleanup(ts.Close)

	old := interactive
	interactive = func() bool { return false }
	t.Cleanup(func() { interactive = old })

	return &testBackend{
		stub:        stub,
		url:         ts.URL,
		sessionFile: filepath.Join(t.TempDir(), "session.json"),
	}
}

func (b *testBackend) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return b.runWithInput(t, "", args...)
}

func (b *testBackend) runWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetIn(strings.NewReader(input))
	root.SetArgs(append([]string{"--server", b.url, "--session-file", b.sessionFile}, args...))

	err := root.Execute()
	return buf.String(), err
}

func (b *testBackend) login(t *testing.T, username string) {
	t.Helper()
	if out, err := b.run(t, "login", "-u", username, "-p", "pw"); err != nil {
		t.Fatalf("login %s: %v\noutput: %s", username, err, out)
	}
}

func (b *testBackend) sessionFileExists() bool {
	_, err := os.Stat(b.sessionFile)
	return !errors.Is(err, fs.ErrNotExist)
}

func TestLoginCommand(t *testing.T) {
	b := startTestBackend(t)
	b.stub.Seed("alice", "pw", "", false)

	out, err := b.run(t, "login", "-u", "alice", "-p", "pw")
	if err != nil {
		t.Fatalf("login error: %v\noutput: %s", err, out)
	}
	if !strings.Contains(out, "Logged in as alice (ROLE_USER)") {
		t.Errorf("expected login confirmation, got: %s", out)
	}
	if strings.Contains(out, "Admin commands") {
		t.Errorf("admin hint shown to a regular user: %s", out)
	}

	data, err := os.ReadFile(b.sessionFile)
	if err != nil {
		t.Fatalf("read session file: %v", err)
	}
	for _, key := range []string{`"token"`, `"username"`, `"role"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("session file missing %s: %s", key, data)
		}
	}

	out, err = b.run(t, "whoami")
	if err != nil {
		t.Fatalf("whoami error: %v", err)
	}
	if !strings.Contains(out, "Username: alice") || !strings.Contains(out, "Admin:    false") {
		t.Errorf("unexpected whoami output: %s", out)
	}
}

func TestLoginCommand_InvalidCredentials(t *testing.T) {
	b := startTestBackend(t)
	b.stub.Seed("alice", "pw", "", false)

	_, err := b.run(t, "login", "-u", "alice", "-p", "wrong")
	if err == nil || err.Error() != "Invalid credentials" {
		t.Fatalf("expected 'Invalid credentials', got %v", err)
	}
	if b.sessionFileExists() {
		t.Error("session file written after failed login")
	}
}

func TestLoginCommand_MissingFields(t *testing.T) {
	b := startTestBackend(t)

	_, err := b.run(t, "login", "-u", "alice")
	if err == nil || !strings.Contains(err.Error(), "username and password") {
		t.Fatalf("expected required-field error, got %v", err)
	}
	if b.stub.Requests() != 0 {
		t.Errorf("expected no backend request, got %d", b.stub.Requests())
	}
}

func TestLoginCommand_PromptsOnTerminal(t *testing.T) {
	b := startTestBackend(t)
	b.stub.Seed("alice", "pw", "", false)
	interactive = func() bool { return true }

	out, err := b.runWithInput(t, "alice\npw\n", "login")
	if err != nil {
		t.Fatalf("login error: %v\noutput: %s", err, out)
	}
	if !strings.Contains(out, "Username: ") || !strings.Contains(out, "Password: ") {
		t.Errorf("expected prompts, got: %s", out)
	}
}

func TestProtectedCommandsRequireLogin(t *testing.T) {
	b := startTestBackend(t)

	for _, args := range [][]string{
		{"whoami"},
		{"journal", "list"},
		{"profile", "delete", "--yes"},
		{"admin", "users"},
	} {
		_, err := b.run(t, args...)
		if err == nil || err.Error() != `not logged in (run "journal login")` {
			t.Errorf("%v: expected not-logged-in error, got %v", args, err)
		}
	}
	if b.stub.Requests() != 0 {
		t.Errorf("expected no backend requests, got %d", b.stub.Requests())
	}
}

func TestJournalCommands(t *testing.T) {
	b := startTestBackend(t)
	uid, _ := b.stub.Seed("alice", "pw", "", false)
	b.login(t, "alice")

	out, err := b.run(t, "journal", "list")
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if !strings.Contains(out, "Welcome back, alice!") || !strings.Contains(out, "No journals yet") {
		t.Errorf("unexpected empty list output: %s", out)
	}

	out, err = b.run(t, "journal", "add", "-t", "Day 1", "-c", "Hello world")
	if err != nil {
		t.Fatalf("add error: %v", err)
	}
	if !strings.Contains(out, "Journal saved: ") {
		t.Errorf("unexpected add output: %s", out)
	}
	b.run(t, "journal", "add", "-t", "Groceries", "-c", "milk")

	_, err = b.run(t, "journal", "add", "-t", "No content")
	if err == nil || err.Error() != "Title and content are required." {
		t.Errorf("expected required-field error, got %v", err)
	}
	if n := b.stub.JournalCount(uid); n != 2 {
		t.Fatalf("expected 2 journals, got %d", n)
	}

	out, _ = b.run(t, "journal", "list", "-q", "HELLO")
	if !strings.Contains(out, "Day 1") || strings.Contains(out, "Groceries") {
		t.Errorf("unexpected filtered output: %s", out)
	}
	if !strings.Contains(out, "1 entry") {
		t.Errorf("expected count line, got: %s", out)
	}
}

func TestJournalEditAndDelete(t *testing.T) {
	b := startTestBackend(t)
	uid, _ := b.stub.Seed("alice", "pw", "", false)
	jid, _ := b.stub.SeedJournal(uid, "Draft", "first take")
	b.login(t, "alice")

	if _, err := b.run(t, "journal", "edit", jid, "-c", "second take"); err != nil {
		t.Fatalf("edit error: %v", err)
	}
	out, _ := b.run(t, "journal", "list")
	if !strings.Contains(out, "Draft") || !strings.Contains(out, "second take") {
		t.Errorf("expected title kept and content replaced: %s", out)
	}

	if _, err := b.run(t, "journal", "edit", "nope", "-t", "x"); err == nil {
		t.Error("expected error editing an unknown entry")
	}

	out, err := b.run(t, "journal", "delete", jid)
	if err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if !strings.Contains(out, "Cancelled.") || b.stub.JournalCount(uid) != 1 {
		t.Errorf("delete without a terminal or --yes should be declined: %s", out)
	}

	if _, err := b.run(t, "journal", "delete", jid, "--yes"); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if n := b.stub.JournalCount(uid); n != 0 {
		t.Errorf("expected entry deleted, %d left", n)
	}

	_, err = b.run(t, "journal", "delete", jid, "--yes")
	if err == nil || err.Error() != "Failed to delete journal." {
		t.Errorf("expected delete failure, got %v", err)
	}
}

func TestJournalDelete_PromptAnswer(t *testing.T) {
	b := startTestBackend(t)
	uid, _ := b.stub.Seed("alice", "pw", "", false)
	jid, _ := b.stub.SeedJournal(uid, "Draft", "text")
	b.login(t, "alice")
	interactive = func() bool { return true }

	out, _ := b.runWithInput(t, "n\n", "journal", "delete", jid)
	if !strings.Contains(out, "Are you sure you want to delete this journal? [y/N]") {
		t.Errorf("expected confirmation prompt, got: %s", out)
	}
	if b.stub.JournalCount(uid) != 1 {
		t.Fatal("entry deleted despite 'n'")
	}

	b.runWithInput(t, "y\n", "journal", "delete", jid)
	if b.stub.JournalCount(uid) != 0 {
		t.Error("entry kept despite 'y'")
	}
}

func TestSignupCommand(t *testing.T) {
	b := startTestBackend(t)

	out, err := b.run(t, "signup", "-u", "bob", "-e", "b@x", "-p", "pw")
	if err != nil {
		t.Fatalf("signup error: %v", err)
	}
	if !strings.Contains(out, "User created successfully") {
		t.Errorf("unexpected signup output: %s", out)
	}

	_, err = b.run(t, "signup", "-u", "bob", "-e", "b@x", "-p", "pw")
	if err == nil || err.Error() != "Username already exists" {
		t.Errorf("expected duplicate error, got %v", err)
	}

	b.login(t, "bob")
}

func TestLogoutCommand(t *testing.T) {
	b := startTestBackend(t)
	b.stub.Seed("alice", "pw", "", false)
	b.login(t, "alice")

	out, err := b.run(t, "logout")
	if err != nil {
		t.Fatalf("logout error: %v", err)
	}
	if !strings.Contains(out, "Logged out alice.") {
		t.Errorf("unexpected logout output: %s", out)
	}
	if b.sessionFileExists() {
		t.Error("session file survived logout")
	}
}

func TestProfileCommands(t *testing.T) {
	b := startTestBackend(t)
	uid, _ := b.stub.Seed("alice", "pw", "a@x", false)
	b.login(t, "alice")

	out, err := b.run(t, "profile", "update", "-u", "alicia", "--sentiment-analysis")
	if err != nil {
		t.Fatalf("update error: %v", err)
	}
	if !strings.Contains(out, "Profile updated successfully") {
		t.Errorf("unexpected update output: %s", out)
	}
	out, _ = b.run(t, "whoami")
	if !strings.Contains(out, "Username: alicia") {
		t.Errorf("expected renamed session, got: %s", out)
	}

	b.run(t, "profile", "delete")
	if b.stub.JournalCount(uid) == -1 {
		t.Fatal("account deleted without confirmation")
	}

	out, err = b.run(t, "profile", "delete", "--yes")
	if err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if !strings.Contains(out, "Account alicia deleted") {
		t.Errorf("unexpected delete output: %s", out)
	}
	if b.stub.JournalCount(uid) != -1 {
		t.Error("expected account deleted in backend")
	}
	if b.sessionFileExists() {
		t.Error("session survived account deletion")
	}
}

func TestAdminCommands(t *testing.T) {
	b := startTestBackend(t)
	b.stub.Seed("root", "pw", "", true)
	uid, _ := b.stub.Seed("u123", "pw", "u@x", false)
	b.stub.SeedJournal(uid, "Secret diary", "words")

	out, err := b.run(t, "login", "-u", "root", "-p", "pw")
	if err != nil {
		t.Fatalf("login error: %v", err)
	}
	if !strings.Contains(out, "Admin commands are available") {
		t.Errorf("expected admin hint, got: %s", out)
	}

	out, err = b.run(t, "admin", "users", "--journals")
	if err != nil {
		t.Fatalf("users error: %v", err)
	}
	for _, want := range []string{"root", "u123", "USER,ADMIN", "Secret diary", "2 users"} {
		if !strings.Contains(out, want) {
			t.Errorf("users output missing %q: %s", want, out)
		}
	}

	out, _ = b.run(t, "admin", "users", "-q", "U12")
	if strings.Contains(out, "root") || !strings.Contains(out, "u123") {
		t.Errorf("unexpected filtered output: %s", out)
	}

	if _, err := b.run(t, "admin", "promote", uid, "--yes"); err != nil {
		t.Fatalf("promote error: %v", err)
	}
	if roles := b.stub.Roles(uid); len(roles) != 2 || roles[1] != "ADMIN" {
		t.Errorf("expected ADMIN role, got %v", roles)
	}

	_, err = b.run(t, "admin", "promote", "missing", "--yes")
	if err == nil || err.Error() != "Failed to create admin." {
		t.Errorf("expected promote failure, got %v", err)
	}

	if _, err := b.run(t, "admin", "delete-user", uid, "--yes"); err != nil {
		t.Fatalf("delete-user error: %v", err)
	}
	if b.stub.JournalCount(uid) != -1 {
		t.Error("expected user deleted")
	}
}

func TestAdminCommands_RegularUser(t *testing.T) {
	b := startTestBackend(t)
	b.stub.Seed("alice", "pw", "", false)
	b.login(t, "alice")

	_, err := b.run(t, "admin", "users")
	if err == nil || err.Error() != "Failed to fetch users and journals." {
		t.Errorf("expected fetch banner, got %v", err)
	}
}

func TestInvalidProfile(t *testing.T) {
	b := startTestBackend(t)

	_, err := b.run(t, "--profile", "staging", "whoami")
	if err == nil || !strings.Contains(err.Error(), "unknown profile") {
		t.Errorf("expected unknown profile error, got %v", err)
	}
}

func TestPreview(t *testing.T) {
	got := preview("line one\n\n  line two", 40)
	if got != "line one line two" {
		t.Errorf("preview collapsed whitespace to %q", got)
	}

	long := strings.Repeat("今日はとても良い天気でした。", 5)
	got = preview(long, 40)
	if !utf8.ValidString(got) {
		t.Fatalf("preview produced invalid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(strings.TrimSuffix(got, "...")); n != 40 {
		t.Errorf("expected 40 runes before the ellipsis, got %d", n)
	}
}
